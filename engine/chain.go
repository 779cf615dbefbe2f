package engine

import "sync"

// Chain is an ordered, mutex-guarded list of effects. Mutation is safe
// from any goroutine while the data callback iterates; a Process call
// observes the list either before or after a concurrent mutation, never
// mid-edit.
type Chain struct {
	mu      sync.Mutex
	effects []Effect
}

// NewChain returns an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Add appends an effect to the end of the chain. A nil effect is
// ignored.
func (c *Chain) Add(e Effect) {
	if e == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.effects = append(c.effects, e)
}

// Remove deletes the first occurrence of e, preserving the order of the
// remaining effects. Removing an effect not in the chain is a no-op.
func (c *Chain) Remove(e Effect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, cur := range c.effects {
		if cur == e {
			c.effects = append(c.effects[:i], c.effects[i+1:]...)

			return
		}
	}
}

// Clear removes every effect.
func (c *Chain) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.effects = c.effects[:0]
}

// Len reports the number of effects in the chain.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.effects)
}

// Process folds every effect over the block in insertion order, in
// place. An empty chain leaves the block untouched.
func (c *Chain) Process(block []float32, channels int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.effects {
		e.Process(block, channels)
	}
}
