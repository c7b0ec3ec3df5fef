package sale

import (
	"github.com/rubicondrive/dealerdesk/internal/sale/repository"
	"github.com/rubicondrive/dealerdesk/internal/sale/service"
	"go.uber.org/fx"
)

// Module wires the sales transaction lifecycle and its vehicle
// reconciliation side effect.
var Module = fx.Module("sale",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
