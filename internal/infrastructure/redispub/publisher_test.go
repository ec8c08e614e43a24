package redispub_test

import (
	"testing"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/redispub"
	"github.com/stretchr/testify/assert"
)

func TestChannels(t *testing.T) {
	assert.Equal(t,
		[]string{"stock-ledger:events", "stock-ledger:events:product:p1"},
		redispub.Channels("stock-ledger:events", &entity.Event{ProductID: "p1"}),
	)
	assert.Equal(t, []string{"ev"}, redispub.Channels("ev", &entity.Event{}))
}
