// Package idgen hands out monotonically increasing handle ids; Subject
// uses them to key its per-subscriber channels.
package idgen

import "github.com/bwmarrin/snowflake"

var node *snowflake.Node

func init() {
	var err error
	node, err = snowflake.NewNode(1)
	if err != nil {
		panic("idgen: failed to initialize snowflake node: " + err.Error())
	}
}

// Next returns the next handle id. It is safe for concurrent use.
func Next() int64 {
	return int64(node.Generate())
}
