package usecase

import (
	"log"
	"sync"
	"time"
	_ "time/tzdata" // zone database for hosts without /usr/share/zoneinfo

	"broadrange-backend/internal/auth/repository"
)

// TimezoneLocator resolves a user's stored IANA time zone. Unknown users,
// blank zones and names that no longer load fall back to UTC.
type TimezoneLocator struct {
	users repository.UserRepository
	mu    sync.RWMutex
	zones map[string]*time.Location
}

func NewTimezoneLocator(users repository.UserRepository) *TimezoneLocator {
	return &TimezoneLocator{
		users: users,
		zones: make(map[string]*time.Location),
	}
}

func (l *TimezoneLocator) Location(userID string) *time.Location {
	user, err := l.users.FindByID(userID)
	if err != nil {
		log.Printf("[TimezoneLocator] Error loading user %s: %v", userID, err)
		return time.UTC
	}
	if user == nil || user.Timezone == "" {
		return time.UTC
	}
	return l.load(user.Timezone)
}

// load caches parsed zones by name.
func (l *TimezoneLocator) load(name string) *time.Location {
	l.mu.RLock()
	loc, ok := l.zones[name]
	l.mu.RUnlock()
	if ok {
		return loc
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[TimezoneLocator] Unknown timezone %q, using UTC", name)
		loc = time.UTC
	}
	l.mu.Lock()
	l.zones[name] = loc
	l.mu.Unlock()
	return loc
}
