package servicedesc

import (
	"go.uber.org/fx"

	"github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc/service"
)

var Module = fx.Module("servicedesc.service",
	fx.Provide(service.NewService),
)
