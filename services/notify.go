package services

import (
	"log"
	"sync"
	"time"
)

// SignalType tags a notification event
type SignalType string

const (
	SignalAwardGranted SignalType = "award_granted"
	SignalLevelUp      SignalType = "level_up"
)

// Signal is a best-effort notification for UI consumers. Delivery is
// never required for ledger correctness — a dropped signal loses a toast,
// not XP.
type Signal struct {
	Type    SignalType `json:"type"`
	Wallet  string     `json:"wallet_address"`
	Delta   int64      `json:"delta,omitempty"`
	Source  string     `json:"source,omitempty"`
	TotalXP int64      `json:"total_xp"`
	Level   int        `json:"level"`
	Title   string     `json:"title,omitempty"`
	SentAt  time.Time  `json:"sent_at"`
}

// Notifier is an in-process fan-out hub keyed by wallet. Publish never
// blocks: a subscriber with a full buffer just misses the signal.
type Notifier struct {
	mu   sync.RWMutex
	subs map[string][]chan Signal
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string][]chan Signal)}
}

// Subscribe returns a buffered channel of signals for one wallet plus a
// cancel func. Always call cancel when the consumer goes away.
func (n *Notifier) Subscribe(wallet string) (<-chan Signal, func()) {
	ch := make(chan Signal, 16)

	n.mu.Lock()
	n.subs[wallet] = append(n.subs[wallet], ch)
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		chans := n.subs[wallet]
		for i, c := range chans {
			if c == ch {
				n.subs[wallet] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		if len(n.subs[wallet]) == 0 {
			delete(n.subs, wallet)
		}
	}
	return ch, cancel
}

// Publish fans a signal out to the wallet's subscribers, dropping on
// full buffers.
func (n *Notifier) Publish(sig Signal) {
	n.mu.RLock()
	chans := n.subs[sig.Wallet]
	n.mu.RUnlock()

	for _, ch := range chans {
		select {
		case ch <- sig:
		default:
			log.Printf("[Notify] dropped %s signal for %s (slow consumer)", sig.Type, sig.Wallet)
		}
	}
}
