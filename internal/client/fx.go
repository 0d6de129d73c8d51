package client

import (
	"go.uber.org/fx"

	"github.com/stefanratchev/Veda-Legal-sub000/internal/client/service"
)

var Module = fx.Module("client.service",
	fx.Provide(service.NewService),
)
