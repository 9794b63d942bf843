package colors

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// OwnerState records which event colour an owner holds and when it was last
// used.
type OwnerState struct {
	ColorID   string    `json:"color_id"`
	LastUsed  time.Time `json:"last_used"`
	OpenTasks int       `json:"open_tasks"`
}

// ColorCache hands out the eleven Google Calendar event colours to task
// owners, recycling the least recently used colour once all are taken.
type ColorCache struct {
	Path   string
	Owners map[string]*OwnerState `json:"owners"`
	now    func() time.Time
	mu     sync.Mutex
	dirty  bool
}

const (
	cacheFile = "owner_colors.json"

	// UnownedColor is used for tasks without an owner.
	UnownedColor = "8"

	maxColor = 11
)

func NewColorCache(dir string) (*ColorCache, error) {
	cache := &ColorCache{
		Path:   filepath.Join(dir, cacheFile),
		Owners: make(map[string]*OwnerState),
		now:    time.Now,
	}

	if _, err := os.Stat(cache.Path); err == nil {
		if err := cache.Load(); err != nil {
			return nil, err
		}
	}
	return cache, nil
}

func (c *ColorCache) Load() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	return json.NewDecoder(f).Decode(&c.Owners)
}

func (c *ColorCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0700); err != nil {
		log.Printf("Error creating color cache directory: %v", err)
		return err
	}

	f, err := os.Create(c.Path)
	if err != nil {
		log.Printf("Error creating color cache file: %v", err)
		return err
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(c.Owners); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// ColorID returns the colour of owner, assigning one on first use. open
// should be true when the task asking is not done; it keeps the owner's
// open-task tally current.
func (c *ColorCache) ColorID(owner string, open bool) string {
	if owner == "" {
		return UnownedColor
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.Owners[owner]
	if !ok {
		state = &OwnerState{ColorID: c.assignColor()}
		c.Owners[owner] = state
	}
	state.LastUsed = c.now()
	if open {
		state.OpenTasks++
	}
	c.dirty = true
	return state.ColorID
}

// assignColor picks the lowest free colour, or evicts the least recently
// used owner and takes over its colour.
func (c *ColorCache) assignColor() string {
	used := make(map[string]bool, len(c.Owners))
	for _, s := range c.Owners {
		used[s.ColorID] = true
	}
	for i := 1; i <= maxColor; i++ {
		if id := strconv.Itoa(i); !used[id] {
			return id
		}
	}

	var oldest string
	var oldestTime time.Time
	for owner, s := range c.Owners {
		if oldest == "" || s.LastUsed.Before(oldestTime) || (s.LastUsed.Equal(oldestTime) && owner < oldest) {
			oldest, oldestTime = owner, s.LastUsed
		}
	}
	recycled := c.Owners[oldest].ColorID
	delete(c.Owners, oldest)
	return recycled
}

// ResetCounts zeroes the open-task tallies before a full recount.
func (c *ColorCache) ResetCounts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.Owners {
		if s.OpenTasks != 0 {
			s.OpenTasks = 0
			c.dirty = true
		}
	}
}
