package tracker

import (
	"log"

	"github.com/lowaak/fitkage/fitkage-app/internal/prefs"
)

// counterPersistence keeps the step baseline in the prefs store so a
// restarted app keeps counting the same session.
type counterPersistence struct {
	store  prefs.Store
	logger *log.Logger
}

func newCounterPersistence(store prefs.Store, logger *log.Logger) *counterPersistence {
	return &counterPersistence{store: store, logger: logger}
}

func (p *counterPersistence) loadBaseline() int {
	if p.store == nil {
		return 0
	}
	baseline := p.store.GetInt(PrefKeyStepBaseline)
	if baseline < 0 {
		p.logger.Printf("CounterPersistence: stored baseline %d is negative, using 0", baseline)
		baseline = 0
	}
	p.logger.Printf("CounterPersistence: loadBaseline -> %d", baseline)
	return baseline
}

func (p *counterPersistence) saveBaseline(baseline int) {
	if p.store == nil {
		return
	}
	if err := p.store.PutInt(PrefKeyStepBaseline, baseline); err != nil {
		p.logger.Printf("CounterPersistence: saveBaseline %d failed: %v", baseline, err)
		return
	}
	p.logger.Printf("CounterPersistence: saveBaseline -> %d", baseline)
}
