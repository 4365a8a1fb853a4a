package generator

import (
	"sync"
	"time"
)

// GPT-4o mini pricing in USD per million tokens
const (
	InputTokenCostPer1M  = 0.150
	OutputTokenCostPer1M = 0.600
)

// EstimateTokenCost prices a request in USD
func EstimateTokenCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*InputTokenCostPer1M/1_000_000 +
		float64(outputTokens)*OutputTokenCostPer1M/1_000_000
}

// CostLimiter enforces a daily LLM budget. Spending resets at the first
// request of each new UTC day.
type CostLimiter struct {
	mu     sync.Mutex
	budget float64
	spent  float64
	day    string
	now    func() time.Time
}

// NewCostLimiter creates a limiter with a daily budget in USD
func NewCostLimiter(dailyBudget float64) *CostLimiter {
	return &CostLimiter{budget: dailyBudget, now: time.Now}
}

// AllowRequest reserves cost against today's budget, reporting false when it
// would be exceeded
func (cl *CostLimiter) AllowRequest(cost float64) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.rollover()
	if cl.spent+cost > cl.budget {
		return false
	}
	cl.spent += cost
	return true
}

// Spent returns today's spending
func (cl *CostLimiter) Spent() float64 {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.rollover()
	return cl.spent
}

// Remaining returns today's unspent budget
func (cl *CostLimiter) Remaining() float64 {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.rollover()
	return cl.budget - cl.spent
}

func (cl *CostLimiter) rollover() {
	day := cl.now().UTC().Format("2006-01-02")
	if day != cl.day {
		cl.day = day
		cl.spent = 0
	}
}
