// Package stats tracks per-command usage counters and the set of users seen
// since process start. State is owned and mutex-guarded, reset on restart.
package stats

import (
	"sort"
	"sync"
	"time"
)

type Collector struct {
	mu        sync.Mutex
	startedAt time.Time
	commands  map[string]int
	users     map[int64]struct{}

	now func() time.Time
}

func NewCollector() *Collector {
	c := &Collector{
		commands: make(map[string]int),
		users:    make(map[int64]struct{}),
		now:      time.Now,
	}
	c.startedAt = c.now()
	return c
}

func (c *Collector) CountCommand(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[name]++
}

func (c *Collector) SeeUser(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[id] = struct{}{}
}

type CommandCount struct {
	Name  string
	Count int
}

type Report struct {
	Uptime        time.Duration
	UniqueUsers   int
	TotalCommands int
	Commands      []CommandCount // sorted by count desc, then name
}

func (c *Collector) Snapshot() Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := Report{
		Uptime:      c.now().Sub(c.startedAt),
		UniqueUsers: len(c.users),
		Commands:    make([]CommandCount, 0, len(c.commands)),
	}
	for name, count := range c.commands {
		report.TotalCommands += count
		report.Commands = append(report.Commands, CommandCount{Name: name, Count: count})
	}
	sort.Slice(report.Commands, func(i, j int) bool {
		if report.Commands[i].Count != report.Commands[j].Count {
			return report.Commands[i].Count > report.Commands[j].Count
		}
		return report.Commands[i].Name < report.Commands[j].Name
	})
	return report
}
