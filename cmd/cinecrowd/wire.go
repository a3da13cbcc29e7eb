//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"cinecrowd/internal/biz"
	"cinecrowd/internal/conf"
	"cinecrowd/internal/data"
	"cinecrowd/internal/server"
	"cinecrowd/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Auth, *conf.Metadata, *conf.Cache, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(server.ProviderSet, data.ProviderSet, biz.ProviderSet, service.ProviderSet, newApp))
}

// wireData opens the storage connections only.
func wireData(*conf.Data, log.Logger) (*data.Data, func(), error) {
	panic(wire.Build(data.NewData))
}

// wireRecompute builds the rating aggregator without the servers.
func wireRecompute(*conf.Data, log.Logger) (*biz.RatingUseCase, func(), error) {
	panic(wire.Build(data.NewData, data.NewTransaction, data.NewMovieRepo, data.NewUserMovieRepo, biz.NewRatingUseCase))
}
