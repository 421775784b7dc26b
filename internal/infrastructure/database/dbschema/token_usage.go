package dbschema

import (
	"github.com/creedpetitt/ai-services-backend/internal/domain/tokenusage"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/database"
)

func init() {
	// tokenusage.TokenUsage carries its own gorm tags; no separate schema
	// struct is needed for an append-only ledger table.
	database.RegisterSchemaForAutoMigrate(tokenusage.TokenUsage{})
}
