package store

// SQL for the collector queries. Table and column names follow the LiteLLM
// schema; all statements are read-only aggregates bounded by a window
// parameter where one applies.

const queryTableExists = `
SELECT EXISTS (
    SELECT FROM information_schema.tables
    WHERE table_schema = 'public'
    AND table_name = $1
)`

// querySpend groups the spend logs by model and owning entities over the
// spend window. One model can appear in many rows (one per entity combination);
// model-level totals must be summed across them by the caller.
const querySpend = `
WITH spend_data AS (
    SELECT
        s.model,
        SUM(s.spend) AS total_spend,
        SUM(s.total_tokens) AS total_tokens,
        SUM(s.prompt_tokens) AS prompt_tokens,
        SUM(s.completion_tokens) AS completion_tokens,
        COUNT(*) AS request_count,
        COUNT(CASE WHEN s.cache_hit = 'true' THEN 1 END) AS cache_hits,
        COUNT(CASE WHEN s.cache_hit = 'false' THEN 1 END) AS cache_misses,
        u.user_id,
        u.user_alias,
        t.team_id,
        t.team_alias,
        o.organization_id,
        o.organization_alias
    FROM "LiteLLM_SpendLogs" s
    LEFT JOIN "LiteLLM_UserTable" u ON s."user" = u.user_id
    LEFT JOIN "LiteLLM_TeamTable" t ON s.team_id = t.team_id
    LEFT JOIN "LiteLLM_OrganizationTable" o ON t.organization_id = o.organization_id
    WHERE s."startTime" >= NOW() - $1::interval
    GROUP BY s.model, u.user_id, u.user_alias, t.team_id, t.team_alias,
             o.organization_id, o.organization_alias
)
SELECT * FROM spend_data`

// queryTagSpend aggregates spend per distinct tag array; the caller unpacks
// the JSON array and accumulates per individual tag.
const queryTagSpend = `
SELECT
    s.request_tags::text AS tags,
    SUM(s.spend) AS total_spend,
    SUM(s.total_tokens) AS total_tokens,
    COUNT(*) AS request_count
FROM "LiteLLM_SpendLogs" s
WHERE s."startTime" >= NOW() - $1::interval
GROUP BY s.request_tags::text`

const queryRateLimits = `
-- User rate limits and blocked status
SELECT
    'user' AS entity_type,
    u.user_id AS entity_id,
    u.user_alias AS entity_alias,
    u.tpm_limit,
    u.rpm_limit,
    u.max_parallel_requests,
    CASE
        WHEN e.blocked = true THEN true
        ELSE false
    END AS is_blocked
FROM "LiteLLM_UserTable" u
LEFT JOIN "LiteLLM_EndUserTable" e ON u.user_id = e.user_id
WHERE u.tpm_limit IS NOT NULL
   OR u.rpm_limit IS NOT NULL
   OR u.max_parallel_requests IS NOT NULL
   OR e.blocked = true

UNION ALL

-- Team rate limits and blocked status
SELECT
    'team' AS entity_type,
    team_id AS entity_id,
    team_alias AS entity_alias,
    tpm_limit,
    rpm_limit,
    max_parallel_requests,
    blocked AS is_blocked
FROM "LiteLLM_TeamTable"
WHERE tpm_limit IS NOT NULL
   OR rpm_limit IS NOT NULL
   OR max_parallel_requests IS NOT NULL
   OR blocked = true`

// queryCurrentRates computes per-minute usage from a fixed one-minute bucket,
// so the windowed sums are already rates.
const queryCurrentRates = `
-- User-level current rates
SELECT
    s.model,
    'user' AS entity_type,
    u.user_id AS entity_id,
    COALESCE(u.user_alias, 'none') AS entity_alias,
    SUM(s.total_tokens) AS total_tokens,
    COUNT(*) AS request_count
FROM "LiteLLM_SpendLogs" s
LEFT JOIN "LiteLLM_UserTable" u ON s."user" = u.user_id
WHERE s."startTime" >= NOW() - INTERVAL '1 minute'
  AND u.user_id IS NOT NULL
GROUP BY s.model, u.user_id, u.user_alias

UNION ALL

-- Team-level current rates
SELECT
    s.model,
    'team' AS entity_type,
    t.team_id AS entity_id,
    COALESCE(t.team_alias, 'none') AS entity_alias,
    SUM(s.total_tokens) AS total_tokens,
    COUNT(*) AS request_count
FROM "LiteLLM_SpendLogs" s
LEFT JOIN "LiteLLM_TeamTable" t ON s.team_id = t.team_id
WHERE s."startTime" >= NOW() - INTERVAL '1 minute'
  AND t.team_id IS NOT NULL
GROUP BY s.model, t.team_id, t.team_alias

UNION ALL

-- Organization-level current rates
SELECT
    s.model,
    'organization' AS entity_type,
    o.organization_id AS entity_id,
    COALESCE(o.organization_alias, 'none') AS entity_alias,
    SUM(s.total_tokens) AS total_tokens,
    COUNT(*) AS request_count
FROM "LiteLLM_SpendLogs" s
LEFT JOIN "LiteLLM_TeamTable" t ON s.team_id = t.team_id
LEFT JOIN "LiteLLM_OrganizationTable" o ON t.organization_id = o.organization_id
WHERE s."startTime" >= NOW() - INTERVAL '1 minute'
  AND o.organization_id IS NOT NULL
GROUP BY s.model, o.organization_id, o.organization_alias`

const queryBudgets = `
WITH budget_data AS (
    -- User budgets from EndUserTable
    SELECT
        b.budget_id,
        b.max_budget,
        b.soft_budget,
        b.budget_reset_at,
        e.user_id AS entity_id,
        'user' AS entity_type,
        u.user_alias AS entity_alias,
        u.spend AS current_spend
    FROM "LiteLLM_BudgetTable" b
    JOIN "LiteLLM_EndUserTable" e ON e.budget_id = b.budget_id
    LEFT JOIN "LiteLLM_UserTable" u ON u.user_id = e.user_id

    UNION ALL

    -- Team budgets from TeamMembership
    SELECT
        b.budget_id,
        b.max_budget,
        b.soft_budget,
        b.budget_reset_at,
        tm.team_id AS entity_id,
        'team' AS entity_type,
        t.team_alias AS entity_alias,
        t.spend AS current_spend
    FROM "LiteLLM_BudgetTable" b
    JOIN "LiteLLM_TeamMembership" tm ON tm.budget_id = b.budget_id
    LEFT JOIN "LiteLLM_TeamTable" t ON t.team_id = tm.team_id

    UNION ALL

    -- Organization budgets from OrganizationMembership
    SELECT
        b.budget_id,
        b.max_budget,
        b.soft_budget,
        b.budget_reset_at,
        om.organization_id AS entity_id,
        'organization' AS entity_type,
        o.organization_alias AS entity_alias,
        o.spend AS current_spend
    FROM "LiteLLM_BudgetTable" b
    JOIN "LiteLLM_OrganizationMembership" om ON om.budget_id = b.budget_id
    LEFT JOIN "LiteLLM_OrganizationTable" o ON o.organization_id = om.organization_id
)
SELECT entity_type, entity_id, entity_alias, max_budget, soft_budget,
       budget_reset_at, current_spend
FROM budget_data`

const queryKeys = `
SELECT
    key_name,
    key_alias,
    expires,
    blocked,
    spend
FROM "LiteLLM_VerificationToken"`

const queryKeySpend = `
SELECT
    v.key_name,
    v.key_alias,
    SUM(l.spend) AS total_spend
FROM "LiteLLM_SpendLogs" l
LEFT JOIN "LiteLLM_VerificationToken" v ON l.api_key = v.token
WHERE l."startTime" >= NOW() - $1::interval
GROUP BY v.key_name, v.key_alias`

const queryKeyBudgets = `
SELECT
    v.key_name,
    v.key_alias,
    COALESCE(v.max_budget, b.max_budget) AS max_budget,
    (
        SELECT COALESCE(SUM(l.spend), 0)
        FROM "LiteLLM_SpendLogs" l
        WHERE l.api_key = v.token
        AND (
            COALESCE(v.budget_reset_at, b.budget_reset_at) IS NULL
            OR l."startTime" >= COALESCE(v.budget_reset_at, b.budget_reset_at)
        )
    ) AS current_spend
FROM "LiteLLM_VerificationToken" v
LEFT JOIN "LiteLLM_BudgetTable" b ON v.budget_id = b.budget_id
WHERE v.max_budget IS NOT NULL OR b.max_budget IS NOT NULL`

const queryErrors = `
SELECT
    COALESCE(e.litellm_model_name, 'unknown') AS model,
    COALESCE(e.exception_type, 'unknown') AS error_type,
    COUNT(*) AS error_count
FROM "LiteLLM_ErrorLogs" e
WHERE e."startTime" >= NOW() - $1::interval
GROUP BY 1, 2`
