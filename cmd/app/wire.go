//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/dkoval/ragchat/internal/bootstrap"
	"github.com/dkoval/ragchat/internal/domain/chat"
	"github.com/dkoval/ragchat/internal/domain/document"
	"github.com/dkoval/ragchat/internal/domain/session"
	"github.com/dkoval/ragchat/internal/infra/config"
	httpiface "github.com/dkoval/ragchat/internal/interface/http"
	"github.com/dkoval/ragchat/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		providePgPool,
		provideDocumentRepository,
		provideFileRepository,
		provideVectorStore,
		provideAzureClient,
		provideEmbedder,
		provideSplitter,
		provideExtractor,
		provideStorage,
		provideQueue,
		provideHistoryStore,
		provideDocumentConfig,
		provideDocumentService,
		provideModelManager,
		provideChatConfig,
		provideSessionConfig,
		session.NewService,
		chat.NewService,
		wire.Bind(new(chat.DocumentIndex), new(*document.Service)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
