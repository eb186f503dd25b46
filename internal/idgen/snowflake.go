package idgen

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

// Generator hands out time-ordered int64 ids.
type Generator interface {
	Next() int64
}

type snowflakeGenerator struct {
	node *snowflake.Node
}

var (
	defaultGen Generator
	once       sync.Once
)

// New creates a snowflake generator for the given node id (0-1023).
func New(nodeID int64) (Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &snowflakeGenerator{node: node}, nil
}

func (g *snowflakeGenerator) Next() int64 {
	return g.node.Generate().Int64()
}

// Default returns a process-wide generator on node 0.
func Default() Generator {
	once.Do(func() {
		g, err := New(0)
		if err != nil {
			panic(err)
		}
		defaultGen = g
	})
	return defaultGen
}
