package stream

// Catalog returns the built-in stream descriptors for the helpdesk API,
// parents before children so the pipeline can run them in order.
func Catalog() []Descriptor {
	return []Descriptor{
		{
			Name:        "groups",
			BasePath:    "/api/v2/groups.json",
			PrimaryKey:  []string{"id"},
			Strategy:    StrategyLink,
			PageSize:    100,
			RecordsPath: "groups",
			Params:      map[string]string{"exclude_deleted": "false"},
		},
		{
			Name:           "organizations",
			BasePath:       "/api/v2/incremental/organizations",
			PrimaryKey:     []string{"id"},
			ReplicationKey: "updated_at",
			Strategy:       StrategyIncrementalTime,
			PageSize:       1000,
			RecordsPath:    "organizations",
		},
		{
			Name:           "users",
			BasePath:       "/api/v2/incremental/users/cursor.json",
			PrimaryKey:     []string{"id"},
			ReplicationKey: "updated_at",
			Strategy:       StrategyIncrementalCursor,
			PageSize:       1000,
			RecordsPath:    "users",
		},
		{
			Name:           "tickets",
			BasePath:       "/api/v2/incremental/tickets/cursor.json",
			PrimaryKey:     []string{"id"},
			ReplicationKey: "updated_at",
			Strategy:       StrategyIncrementalCursor,
			PageSize:       1000,
			RecordsPath:    "tickets",
		},
		{
			Name:           "tickets_sideloading",
			BasePath:       "/api/v2/incremental/tickets/cursor.json",
			PrimaryKey:     []string{"id"},
			ReplicationKey: "updated_at",
			Strategy:       StrategyIncrementalCursor,
			PageSize:       1000,
			RecordsPath:    "tickets",
			Params:         map[string]string{"include": "metric_events,slas"},
		},
		{
			Name:        "ticket_fields",
			BasePath:    "/api/v2/ticket_fields.json",
			PrimaryKey:  []string{"id"},
			Strategy:    StrategyLink,
			PageSize:    100,
			RecordsPath: "ticket_fields",
		},
		{
			Name:           "ticket_events",
			BasePath:       "/api/v2/incremental/ticket_events.json",
			PrimaryKey:     []string{"id"},
			ReplicationKey: "created_at",
			Strategy:       StrategyIncrementalTime,
			PageSize:       1000,
			RecordsPath:    "ticket_events",
			Params:         map[string]string{"include": "comment_events"},
		},
		{
			Name:           "ticket_metric_events",
			BasePath:       "/api/v2/incremental/ticket_metric_events.json",
			PrimaryKey:     []string{"id"},
			ReplicationKey: "time",
			Strategy:       StrategyIncrementalTime,
			PageSize:       1000,
			RecordsPath:    "ticket_metric_events",
		},
		{
			Name:        "tags",
			BasePath:    "/api/v2/tags.json",
			PrimaryKey:  []string{"name"},
			Strategy:    StrategyLink,
			PageSize:    1000,
			RecordsPath: "tags",
		},
		{
			Name:             "satisfaction_ratings",
			BasePath:         "/api/v2/satisfaction_ratings.json",
			PrimaryKey:       []string{"id"},
			ReplicationKey:   "updated_at",
			Strategy:         StrategyLink,
			PageSize:         100,
			RecordsPath:      "satisfaction_ratings",
			TimeFilterParams: true,
		},
		{
			Name:        "sla_policies",
			BasePath:    "/api/v2/slas/policies.json",
			PrimaryKey:  []string{"id"},
			Strategy:    StrategyCursor,
			RecordsPath: "sla_policies",
		},
		{
			Name:        "ticket_audits",
			BasePath:    "/api/v2/tickets/{ticket_id}/audits.json",
			PrimaryKey:  []string{"id"},
			Strategy:    StrategyLink,
			PageSize:    100,
			RecordsPath: "audits",
			Parent:      "tickets",
		},
		{
			Name:        "ticket_comments",
			BasePath:    "/api/v2/tickets/{ticket_id}/comments.json",
			PrimaryKey:  []string{"id"},
			Strategy:    StrategyLink,
			PageSize:    100,
			RecordsPath: "comments",
			Parent:      "tickets",
		},
		{
			Name:        "ticket_metrics",
			BasePath:    "/api/v2/tickets/{ticket_id}/metrics.json",
			PrimaryKey:  []string{"id"},
			Strategy:    StrategyLink,
			RecordsPath: "ticket_metric",
			Parent:      "tickets",
		},
	}
}

// Lookup finds a descriptor by stream name.
func Lookup(name string) (Descriptor, bool) {
	for _, d := range Catalog() {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}
