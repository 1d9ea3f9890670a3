package metrics

// Metric family names. The litellm_* names and label schemas match the
// gateway's published metric contract; the litellm_exporter_* families are
// the exporter's own health signals.
const (
	// Spend
	TotalSpend = "litellm_total_spend"
	UserSpend  = "litellm_user_spend"
	TeamSpend  = "litellm_team_spend"
	OrgSpend   = "litellm_org_spend"
	TagSpend   = "litellm_tag_spend"
	KeySpend   = "litellm_key_spend"

	// Tokens
	TotalTokens      = "litellm_total_tokens"
	PromptTokens     = "litellm_prompt_tokens"
	CompletionTokens = "litellm_completion_tokens"
	TagTokens        = "litellm_tag_total_tokens"

	// Requests and cache
	RequestsTotal    = "litellm_requests_total"
	CacheHitsTotal   = "litellm_cache_hits_total"
	CacheMissesTotal = "litellm_cache_misses_total"

	// Current usage and limits
	CurrentTPM       = "litellm_current_tpm"
	CurrentRPM       = "litellm_current_rpm"
	TPMLimit         = "litellm_tpm_limit"
	RPMLimit         = "litellm_rpm_limit"
	ParallelRequests = "litellm_parallel_requests"

	// Budgets
	BudgetUtilization = "litellm_budget_utilization"
	MaxBudget         = "litellm_max_budget"
	SoftBudget        = "litellm_soft_budget"
	BudgetResetTime   = "litellm_budget_reset_time"

	// Entity and key status
	BlockedStatus  = "litellm_blocked_status"
	KeyBlocked     = "litellm_key_blocked_status"
	KeyExpiry      = "litellm_key_expiry"
	KeyBudget      = "litellm_key_budget"
	KeyBudgetSpend = "litellm_key_budget_spend"
	ActiveKeys     = "litellm_active_keys"
	ExpiredKeys    = "litellm_expired_keys"

	// Errors
	ErrorsTotal = "litellm_errors_total"
	ErrorRate   = "litellm_error_rate"

	// Exporter self-metrics
	RefreshDuration = "litellm_exporter_refresh_duration_seconds"
	RefreshSuccess  = "litellm_exporter_refresh_success"
	LastRefresh     = "litellm_exporter_last_refresh_timestamp_seconds"
	DBConnections   = "litellm_exporter_db_connections"
)

var (
	modelLabels  = []string{"model"}
	entityLabels = []string{"entity_type", "entity_id", "entity_alias"}
	rateLabels   = []string{"model", "entity_type", "entity_id", "entity_alias"}
	keyLabels    = []string{"key_name", "key_alias"}
)

// refreshDurationBuckets covers sub-second aggregate queries up to multi-second
// full-table scans on large spend logs.
var refreshDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// NewLiteLLMRegistry builds the registry with the full exporter metric set.
func NewLiteLLMRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(
		// Spend
		Desc{Name: TotalSpend, Help: "Total spend across all users", Kind: KindGauge, Labels: modelLabels},
		Desc{Name: UserSpend, Help: "Spend by user", Kind: KindGauge, Labels: []string{"user_id", "user_alias", "model"}},
		Desc{Name: TeamSpend, Help: "Spend by team", Kind: KindGauge, Labels: []string{"team_id", "team_alias", "model"}},
		Desc{Name: OrgSpend, Help: "Spend by organization", Kind: KindGauge, Labels: []string{"organization_id", "organization_alias", "model"}},
		Desc{Name: TagSpend, Help: "Spend by request tag", Kind: KindGauge, Labels: []string{"tag"}},
		Desc{Name: KeySpend, Help: "Current spend for key", Kind: KindGauge, Labels: keyLabels},

		// Tokens
		Desc{Name: TotalTokens, Help: "Total tokens used", Kind: KindGauge, Labels: modelLabels},
		Desc{Name: PromptTokens, Help: "Prompt tokens used", Kind: KindGauge, Labels: modelLabels},
		Desc{Name: CompletionTokens, Help: "Completion tokens used", Kind: KindGauge, Labels: modelLabels},
		Desc{Name: TagTokens, Help: "Tokens used by request tag", Kind: KindGauge, Labels: []string{"tag"}},

		// Requests and cache
		Desc{Name: RequestsTotal, Help: "Total number of requests", Kind: KindGauge, Labels: modelLabels},
		Desc{Name: CacheHitsTotal, Help: "Total number of cache hits", Kind: KindCounter, Labels: modelLabels},
		Desc{Name: CacheMissesTotal, Help: "Total number of cache misses", Kind: KindCounter, Labels: modelLabels},

		// Current usage and limits
		Desc{Name: CurrentTPM, Help: "Current tokens per minute usage", Kind: KindGauge, Labels: rateLabels},
		Desc{Name: CurrentRPM, Help: "Current requests per minute usage", Kind: KindGauge, Labels: rateLabels},
		Desc{Name: TPMLimit, Help: "Tokens per minute limit", Kind: KindGauge, Labels: entityLabels},
		Desc{Name: RPMLimit, Help: "Requests per minute limit", Kind: KindGauge, Labels: entityLabels},
		Desc{Name: ParallelRequests, Help: "Maximum parallel requests", Kind: KindGauge, Labels: entityLabels},

		// Budgets
		Desc{Name: BudgetUtilization, Help: "Budget utilization percentage", Kind: KindGauge, Labels: entityLabels},
		Desc{Name: MaxBudget, Help: "Maximum budget", Kind: KindGauge, Labels: entityLabels},
		Desc{Name: SoftBudget, Help: "Soft budget limit", Kind: KindGauge, Labels: entityLabels},
		Desc{Name: BudgetResetTime, Help: "Time until budget reset in seconds", Kind: KindGauge, Labels: entityLabels},

		// Entity and key status
		Desc{Name: BlockedStatus, Help: "Entity blocked status", Kind: KindGauge, Labels: entityLabels},
		Desc{Name: KeyBlocked, Help: "API key blocked status", Kind: KindGauge, Labels: keyLabels},
		Desc{Name: KeyExpiry, Help: "Time until key expiry in seconds", Kind: KindGauge, Labels: keyLabels},
		Desc{Name: KeyBudget, Help: "Maximum budget for API key", Kind: KindGauge, Labels: keyLabels},
		Desc{Name: KeyBudgetSpend, Help: "Current spend for API key within budget cycle", Kind: KindGauge, Labels: keyLabels},
		Desc{Name: ActiveKeys, Help: "Number of API keys that are not expired", Kind: KindGauge},
		Desc{Name: ExpiredKeys, Help: "Number of API keys past their expiry", Kind: KindGauge},

		// Errors
		Desc{Name: ErrorsTotal, Help: "Error count within the error window by model and error type", Kind: KindGauge, Labels: []string{"model", "error_type"}},
		Desc{Name: ErrorRate, Help: "Errors per minute by model and error type", Kind: KindGauge, Labels: []string{"model", "error_type"}},

		// Exporter self-metrics
		Desc{Name: RefreshDuration, Help: "Duration of collector refreshes in seconds", Kind: KindHistogram, Labels: []string{"collector"}, Buckets: refreshDurationBuckets},
		Desc{Name: RefreshSuccess, Help: "Whether the collector's last refresh succeeded", Kind: KindGauge, Labels: []string{"collector"}},
		Desc{Name: LastRefresh, Help: "Unix timestamp of the collector's last successful refresh", Kind: KindGauge, Labels: []string{"collector"}},
		Desc{Name: DBConnections, Help: "Database connection pool state", Kind: KindGauge, Labels: []string{"state"}},
	)

	return r
}
