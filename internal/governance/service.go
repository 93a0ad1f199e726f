// Package governance implements the promotion lifecycle: draft and
// submission handling, reviewer triage, ballot casting with tally
// evaluation, and idempotent vote finalization.
//
// The package owns every portfolio status transition. The ledger stores
// state, the collab interfaces carry side effects (messages, role grants,
// notifications), and this package sequences them so that a crash at any
// point leaves the system recoverable by RecoverState.
package governance

import (
	"encoding/json"
	"log"
	"time"

	"github.com/curiahq/curia/internal/collab"
	"github.com/curiahq/curia/internal/config"
	"github.com/curiahq/curia/pkg/ledger"
)

// Service coordinates governance operations against the ledger and the
// collaboration transports.
type Service struct {
	store     *ledger.Client
	cfg       *config.Config
	messenger collab.Messenger
	granter   collab.RoleGranter
	notifier  collab.Notifier

	// now is swappable for tests
	now func() time.Time
}

// NewService creates a governance service. All dependencies are required.
func NewService(store *ledger.Client, cfg *config.Config, messenger collab.Messenger, granter collab.RoleGranter, notifier collab.Notifier) *Service {
	return &Service{
		store:     store,
		cfg:       cfg,
		messenger: messenger,
		granter:   granter,
		notifier:  notifier,
		now:       time.Now,
	}
}

func (s *Service) nowMs() int64 {
	return s.now().UnixMilli()
}

// logEvent emits a structured JSON log entry.
func (s *Service) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "governance"
	data["event_type"] = eventType
	data["community"] = s.store.Community()

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Governance] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
