package models

// All lists every persisted model, in dependency order, for schema
// bootstrapping of embedded databases.
func All() []any {
	return []any{
		&Asset{},
		&CreditAccount{},
		&CreditAllowance{},
		&CreditEntry{},
		&StayRecord{},
		&OutboxEvent{},
	}
}
