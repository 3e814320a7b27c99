package warehouse

import (
	"fmt"

	"github.com/alpinedata/chairlift/pkg/config"
)

// Statement is one named DDL statement.
type Statement struct {
	Name string
	SQL  string
}

// Statements renders the complete object set, in dependency order:
// database and schema, the three landing tables, a streaming pipe per
// table, and the dynamic tables that aggregate the raw events.
func Statements(cfg config.SnowflakeConfig) []Statement {
	db := cfg.Database
	schema := fmt.Sprintf("%s.%s", db, cfg.Schema)
	lag := cfg.TargetLag
	if lag == "" {
		lag = "1 minute"
	}

	stmts := []Statement{
		{
			Name: "database " + db,
			SQL:  fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		},
		{
			Name: "schema " + schema,
			SQL:  fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema),
		},
		{
			Name: "table LIFT_RIDE",
			SQL: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.LIFT_RIDE (
    TXID VARCHAR NOT NULL,
    RFID VARCHAR NOT NULL,
    RIDE_TIME TIMESTAMP_TZ NOT NULL,
    LIFT VARCHAR,
    RESORT VARCHAR NOT NULL
)`, schema),
		},
		{
			Name: "table RESORT_TICKET",
			SQL: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.RESORT_TICKET (
    TXID VARCHAR NOT NULL,
    RFID VARCHAR NOT NULL,
    PURCHASE_TIME TIMESTAMP_TZ NOT NULL,
    PRICE_USD NUMBER NOT NULL,
    EXPIRATION_TIME TIMESTAMP_TZ NOT NULL,
    NAME VARCHAR NOT NULL,
    ADDRESS VARIANT,
    PHONE VARCHAR,
    EMAIL VARCHAR,
    EMERGENCY_CONTACT VARIANT,
    DAYS NUMBER NOT NULL,
    RESORT VARCHAR NOT NULL
)`, schema),
		},
		{
			Name: "table SEASON_PASS",
			SQL: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.SEASON_PASS (
    TXID VARCHAR NOT NULL,
    RFID VARCHAR NOT NULL,
    PURCHASE_TIME TIMESTAMP_TZ NOT NULL,
    PRICE_USD NUMBER NOT NULL,
    EXPIRATION_TIME TIMESTAMP_TZ NOT NULL,
    NAME VARCHAR NOT NULL,
    ADDRESS VARIANT,
    PHONE VARCHAR,
    EMAIL VARCHAR,
    EMERGENCY_CONTACT VARIANT
)`, schema),
		},
	}

	for _, pipe := range []struct {
		name  string
		table string
	}{
		{cfg.Pipes.LiftRides, "LIFT_RIDE"},
		{cfg.Pipes.ResortTickets, "RESORT_TICKET"},
		{cfg.Pipes.SeasonPasses, "SEASON_PASS"},
	} {
		stmts = append(stmts, Statement{
			Name: "pipe " + pipe.name,
			SQL: fmt.Sprintf(`CREATE PIPE IF NOT EXISTS %s.%s
AS COPY INTO %s.%s
FROM TABLE(DATA_SOURCE(TYPE => 'STREAMING'))
MATCH_BY_COLUMN_NAME = CASE_SENSITIVE`, schema, pipe.name, schema, pipe.table),
		})
	}

	stmts = append(stmts,
		Statement{
			Name: "dynamic table DAILY_RESORT_REVENUE",
			SQL: fmt.Sprintf(`CREATE OR REPLACE DYNAMIC TABLE %s.DAILY_RESORT_REVENUE
TARGET_LAG = '%s'
WAREHOUSE = %s
AS
SELECT
    TO_DATE(PURCHASE_TIME) AS PURCHASE_DATE,
    RESORT,
    COUNT(*) AS TICKETS_SOLD,
    SUM(PRICE_USD) AS REVENUE_USD
FROM %s.RESORT_TICKET
GROUP BY PURCHASE_DATE, RESORT`, schema, lag, cfg.Warehouse, schema),
		},
		Statement{
			Name: "dynamic table DAILY_LIFT_RIDES",
			SQL: fmt.Sprintf(`CREATE OR REPLACE DYNAMIC TABLE %s.DAILY_LIFT_RIDES
TARGET_LAG = '%s'
WAREHOUSE = %s
AS
SELECT
    TO_DATE(RIDE_TIME) AS RIDE_DATE,
    RESORT,
    LIFT,
    COUNT(*) AS RIDES,
    COUNT(DISTINCT RFID) AS UNIQUE_RIDERS
FROM %s.LIFT_RIDE
GROUP BY RIDE_DATE, RESORT, LIFT`, schema, lag, cfg.Warehouse, schema),
		},
		Statement{
			Name: "dynamic table ACTIVE_SEASON_PASSES",
			SQL: fmt.Sprintf(`CREATE OR REPLACE DYNAMIC TABLE %s.ACTIVE_SEASON_PASSES
TARGET_LAG = '%s'
WAREHOUSE = %s
AS
SELECT
    TO_DATE(PURCHASE_TIME) AS PURCHASE_DATE,
    COUNT(*) AS PASSES_SOLD,
    SUM(PRICE_USD) AS REVENUE_USD
FROM %s.SEASON_PASS
WHERE EXPIRATION_TIME > CURRENT_TIMESTAMP()
GROUP BY PURCHASE_DATE`, schema, lag, cfg.Warehouse, schema),
		},
	)

	return stmts
}
