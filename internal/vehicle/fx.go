package vehicle

import (
	"github.com/rubicondrive/dealerdesk/internal/vehicle/repository"
	"github.com/rubicondrive/dealerdesk/internal/vehicle/service"
	"go.uber.org/fx"
)

// Module wires the vehicle catalog: repository, view composition service,
// and stock number allocation.
var Module = fx.Module("vehicle",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
