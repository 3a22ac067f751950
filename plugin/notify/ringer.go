package notify

import (
	"sort"
	"sync"
	"time"
)

// Ringing is an alarm that was delivered and not yet silenced.
type Ringing struct {
	Since   time.Time `json:"since"`
	AlarmID string    `json:"alarm_id"`
	Body    string    `json:"body"`
	Sound   string    `json:"sound"`
}

// Ringer tracks which alarms are currently sounding.
// A delivered alarm keeps ringing until its stop action is taken.
type Ringer struct {
	ringing map[string]Ringing
	mu      sync.Mutex
}

func NewRinger() *Ringer {
	return &Ringer{ringing: make(map[string]Ringing)}
}

// Start marks the alarm of n as ringing. A repeat keeps the original start.
func (r *Ringer) Start(n *Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ringing[n.AlarmID]; ok {
		return
	}
	r.ringing[n.AlarmID] = Ringing{Since: n.At, AlarmID: n.AlarmID, Body: n.Body, Sound: n.Sound}
}

// Stop silences an alarm and reports whether it was ringing.
func (r *Ringer) Stop(alarmID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ringing[alarmID]
	delete(r.ringing, alarmID)
	return ok
}

// Forget drops any state for a deleted alarm.
func (r *Ringer) Forget(alarmID string) {
	r.Stop(alarmID)
}

// Active returns ringing alarms, oldest first.
func (r *Ringer) Active() []Ringing {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]Ringing, 0, len(r.ringing))
	for _, ringing := range r.ringing {
		list = append(list, ringing)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Since.Equal(list[j].Since) {
			return list[i].Since.Before(list[j].Since)
		}
		return list[i].AlarmID < list[j].AlarmID
	})
	return list
}
