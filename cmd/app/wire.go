//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/jchen-dev/recipebox/internal/bootstrap"
	"github.com/jchen-dev/recipebox/internal/domain/auth"
	"github.com/jchen-dev/recipebox/internal/domain/recipe"
	"github.com/jchen-dev/recipebox/internal/infra/config"
	httpiface "github.com/jchen-dev/recipebox/internal/interface/http"
	"github.com/jchen-dev/recipebox/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideAuthConfig,
		provideKeyring,
		provideHasher,
		provideLoginLimiter,
		providePool,
		provideUserRepository,
		provideRecipeRepository,
		provideCookieConfig,
		auth.NewService,
		recipe.NewService,
		httpiface.NewAuthHandler,
		httpiface.NewRecipeHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
