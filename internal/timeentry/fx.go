package timeentry

import (
	"go.uber.org/fx"

	"github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/service"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/writeoff"
)

var Module = fx.Module("timeentry.service",
	fx.Provide(writeoff.NewReconciler),
	fx.Provide(service.NewService),
)
