package webhookevent

import (
	"github.com/smallbiznis/webhookharness/internal/webhookevent/repository"
	"github.com/smallbiznis/webhookharness/internal/webhookevent/service"
	"go.uber.org/fx"
)

var Module = fx.Module("webhookevent",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
