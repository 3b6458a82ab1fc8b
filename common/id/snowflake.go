package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init creates the process-wide Snowflake node. Each concierge replica gets
// its own node ID so turn IDs stay unique across replicas. Idempotent; only
// the first call takes effect.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New mints a time-ordered unique int64, used to tag each answered turn in
// the log context.
func New() int64 {
	return node.Generate().Int64()
}
