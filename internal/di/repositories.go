package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/modules/trading"
	"github.com/aristath/meridian/internal/modules/universe"
)

// InitializeRepositories creates every repository on the container's database
func InitializeRepositories(container *Container, log zerolog.Logger) {
	conn := container.DB.Conn()

	container.TickerRepo = universe.NewTickerRepository(conn, log)
	container.BankTickerRepo = universe.NewBankTickerRepository(conn, log)
	container.BarRepo = universe.NewBarRepository(conn, log)
	container.MetricRepo = universe.NewMetricRepository(conn, log)
	container.OrderRepo = trading.NewOrderRepository(conn, log)
	container.HistoryRepo = trading.NewHistoryRepository(conn, log)

	log.Debug().Msg("Repositories initialized")
}
