package schedule

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/trivium-ecommerce/fulfillment/internal/config"
)

// Decision — вердикт гейта для одного момента времени.
type Decision struct {
	// Run — нужно ли запускать цикл.
	Run bool
	// Slot — слот HH:MM, который сработал; пустой для обычного тика.
	Slot string
	// Reason — краткая причина для логов.
	Reason string
}

// Gate решает, должен ли монитор запустить цикл обработки в данный момент.
// Правила: в выключенный день недели циклы не запускаются вообще; в
// включённый день каждый тик монитора запускает цикл безусловно, а
// совпадение со слотом HH:MM помечает запуск как слотовый ровно один раз
// за (слот, дата).
type Gate struct {
	mu  sync.Mutex
	now func() time.Time
	log *log.Entry

	// lastSlotRun хранит дату последнего срабатывания каждого слота,
	// чтобы слот не сработал дважды за один день.
	lastSlotRun map[string]string
}

// NewGate создаёт гейт с часами по умолчанию.
func NewGate(logger *log.Entry) *Gate {
	return NewGateWithClock(logger, time.Now)
}

// NewGateWithClock создаёт гейт с внешними часами. Единственный источник
// времени для всех решений гейта.
func NewGateWithClock(logger *log.Entry, now func() time.Time) *Gate {
	if logger == nil {
		logger = log.WithField("component", "schedule_gate")
	}
	return &Gate{
		now:         now,
		log:         logger,
		lastSlotRun: make(map[string]string),
	}
}

// Evaluate принимает снимок расписания и возвращает вердикт для текущего
// момента. Снимок передаётся целиком: изменения конфигурации применяются
// только на следующем тике, никогда посреди цикла.
func (g *Gate) Evaluate(sched config.ScheduleConfig) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	if !sched.Weekly.EnabledOn(now.Weekday()) {
		return Decision{Run: false, Reason: "day disabled"}
	}

	hhmm := now.Format("15:04")
	date := now.Format("2006-01-02")

	for _, slot := range sched.Slots() {
		if slot != hhmm {
			continue
		}
		if g.lastSlotRun[slot] == date {
			// Слот уже отработал сегодня, запуск остаётся обычным тиком.
			break
		}
		g.lastSlotRun[slot] = date
		g.log.WithFields(log.Fields{"slot": slot, "date": date}).Info("processing slot reached")
		return Decision{Run: true, Slot: slot, Reason: "slot match"}
	}

	return Decision{Run: true, Reason: "monitor tick"}
}

// Reset очищает память срабатываний слотов. Используется тестами и при
// перезапуске монитора.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastSlotRun = make(map[string]string)
}
