package database

// schemaStatements are applied in order by EnsureSchema.
// Numeric columns are nullable: NULL means "column missing" for that period.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS data`,
	`CREATE SCHEMA IF NOT EXISTS selection`,

	`CREATE TABLE IF NOT EXISTS data.quarterly_financials (
		stock_code          VARCHAR(16) NOT NULL,
		period              VARCHAR(8)  NOT NULL,
		report_date         DATE        NOT NULL,
		revenue             DOUBLE PRECISION,
		gross_profit        DOUBLE PRECISION,
		operating_income    DOUBLE PRECISION,
		net_income          DOUBLE PRECISION,
		eps                 DOUBLE PRECISION,
		equity              DOUBLE PRECISION,
		total_assets        DOUBLE PRECISION,
		total_liabilities   DOUBLE PRECISION,
		operating_cash_flow DOUBLE PRECISION,
		capex               DOUBLE PRECISION,
		PRIMARY KEY (stock_code, period)
	)`,

	`CREATE TABLE IF NOT EXISTS data.valuation_history (
		stock_code VARCHAR(16) NOT NULL,
		trade_date DATE        NOT NULL,
		per        DOUBLE PRECISION,
		PRIMARY KEY (stock_code, trade_date)
	)`,

	`CREATE TABLE IF NOT EXISTS data.daily_prices (
		stock_code  VARCHAR(16) NOT NULL,
		trade_date  DATE        NOT NULL,
		open_price  DOUBLE PRECISION NOT NULL,
		high_price  DOUBLE PRECISION NOT NULL,
		low_price   DOUBLE PRECISION NOT NULL,
		close_price DOUBLE PRECISION NOT NULL,
		volume      BIGINT NOT NULL,
		ma_short    DOUBLE PRECISION,
		ma_mid      DOUBLE PRECISION,
		ma_long     DOUBLE PRECISION,
		macd_dif    DOUBLE PRECISION,
		macd_signal DOUBLE PRECISION,
		stoch_k     DOUBLE PRECISION,
		stoch_d     DOUBLE PRECISION,
		PRIMARY KEY (stock_code, trade_date)
	)`,

	`CREATE TABLE IF NOT EXISTS data.investor_flow (
		stock_code  VARCHAR(16) NOT NULL,
		trade_date  DATE        NOT NULL,
		foreign_net BIGINT NOT NULL,
		trust_net   BIGINT NOT NULL,
		dealer_net  BIGINT NOT NULL,
		PRIMARY KEY (stock_code, trade_date)
	)`,

	`CREATE TABLE IF NOT EXISTS data.holder_concentration (
		stock_code    VARCHAR(16) NOT NULL,
		snapshot_date DATE        NOT NULL,
		major_pct     DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (stock_code, snapshot_date)
	)`,

	`CREATE TABLE IF NOT EXISTS data.market_cap (
		stock_code VARCHAR(16) NOT NULL,
		trade_date DATE        NOT NULL,
		market_cap BIGINT      NOT NULL,
		PRIMARY KEY (stock_code, trade_date)
	)`,

	`CREATE TABLE IF NOT EXISTS selection.screening_runs (
		run_id          VARCHAR(64) PRIMARY KEY,
		run_date        DATE        NOT NULL,
		config_hash     VARCHAR(64) NOT NULL,
		universe_count  INT         NOT NULL,
		result_count    INT         NOT NULL,
		exclusion_count INT         NOT NULL,
		duration_ms     BIGINT      NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_screening_runs_date ON selection.screening_runs (run_date DESC, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS selection.screening_results (
		run_id            VARCHAR(64) NOT NULL REFERENCES selection.screening_runs(run_id) ON DELETE CASCADE,
		stock_code        VARCHAR(16) NOT NULL,
		rank              INT         NOT NULL,
		fundamental_score DOUBLE PRECISION NOT NULL,
		flow_strength     DOUBLE PRECISION NOT NULL,
		technical_score   DOUBLE PRECISION,
		signal            VARCHAR(32) NOT NULL,
		state             VARCHAR(32) NOT NULL,
		details           JSONB       NOT NULL,
		PRIMARY KEY (run_id, stock_code)
	)`,

	`CREATE TABLE IF NOT EXISTS selection.screening_exclusions (
		run_id     VARCHAR(64) NOT NULL REFERENCES selection.screening_runs(run_id) ON DELETE CASCADE,
		stock_code VARCHAR(16) NOT NULL,
		stage      VARCHAR(32) NOT NULL,
		reason     VARCHAR(64) NOT NULL,
		detail     TEXT        NOT NULL DEFAULT '',
		trace      JSONB,
		PRIMARY KEY (run_id, stock_code)
	)`,
}
