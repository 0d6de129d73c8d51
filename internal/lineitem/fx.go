package lineitem

import (
	"go.uber.org/fx"

	"github.com/stefanratchev/Veda-Legal-sub000/internal/lineitem/service"
)

var Module = fx.Module("lineitem.service",
	fx.Provide(service.NewService),
)
