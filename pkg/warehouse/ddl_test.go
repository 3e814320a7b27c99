package warehouse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpinedata/chairlift/pkg/config"
)

func TestStatementsCoverEveryObject(t *testing.T) {
	cfg := config.Default().Snowflake
	cfg.Warehouse = "INGEST_WH"

	stmts := Statements(cfg)
	byName := map[string]string{}
	for _, s := range stmts {
		byName[s.Name] = s.SQL
	}

	require.Contains(t, byName, "database SKI_RESORT")
	require.Contains(t, byName, "schema SKI_RESORT.INGEST")
	for _, table := range []string{"LIFT_RIDE", "RESORT_TICKET", "SEASON_PASS"} {
		require.Contains(t, byName, "table "+table)
		assert.Contains(t, byName["table "+table], "SKI_RESORT.INGEST."+table)
	}
	for _, pipe := range []string{"LIFT_RIDE_PIPE", "RESORT_TICKET_PIPE", "SEASON_PASS_PIPE"} {
		require.Contains(t, byName, "pipe "+pipe)
		assert.Contains(t, byName["pipe "+pipe], "DATA_SOURCE(TYPE => 'STREAMING')")
	}
	for _, dt := range []string{"DAILY_RESORT_REVENUE", "DAILY_LIFT_RIDES", "ACTIVE_SEASON_PASSES"} {
		require.Contains(t, byName, "dynamic table "+dt)
		assert.Contains(t, byName["dynamic table "+dt], "TARGET_LAG = '1 minute'")
		assert.Contains(t, byName["dynamic table "+dt], "WAREHOUSE = INGEST_WH")
	}
}

func TestStatementsOrderAndIdempotence(t *testing.T) {
	cfg := config.Default().Snowflake
	stmts := Statements(cfg)

	// Database and schema come before anything referencing them.
	assert.Equal(t, "database SKI_RESORT", stmts[0].Name)
	assert.Equal(t, "schema SKI_RESORT.INGEST", stmts[1].Name)

	for _, s := range stmts {
		rerunnable := strings.Contains(s.SQL, "IF NOT EXISTS") || strings.Contains(s.SQL, "OR REPLACE")
		assert.True(t, rerunnable, "statement %q is not rerunnable", s.Name)
	}
}

func TestTicketTableCarriesCustomerColumns(t *testing.T) {
	cfg := config.Default().Snowflake
	var ticketSQL string
	for _, s := range Statements(cfg) {
		if s.Name == "table RESORT_TICKET" {
			ticketSQL = s.SQL
		}
	}
	require.NotEmpty(t, ticketSQL)
	for _, col := range []string{"ADDRESS VARIANT", "EMERGENCY_CONTACT VARIANT", "DAYS NUMBER", "PRICE_USD NUMBER"} {
		assert.Contains(t, ticketSQL, col)
	}
}
