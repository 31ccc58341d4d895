// Package idgen 基于雪花算法生成访客ID
package idgen

import (
	"fmt"
	"sync"
	"time"

	sf "github.com/bwmarrin/snowflake"
)

var (
	node *sf.Node
	mu   sync.RWMutex
)

// Init 初始化雪花算法节点
// startTime: 起始时间，格式："2006-01-02"
// machineID: 机器ID (0-1023)
func Init(startTime string, machineID int64) error {
	st, err := time.Parse("2006-01-02", startTime)
	if err != nil {
		return fmt.Errorf("解析起始时间失败: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()

	sf.Epoch = st.UnixNano() / 1000000
	n, err := sf.NewNode(machineID)
	if err != nil {
		return fmt.Errorf("创建雪花节点失败: %w", err)
	}
	node = n
	return nil
}

// GenerateID 生成唯一ID
func GenerateID() (int64, error) {
	mu.RLock()
	defer mu.RUnlock()

	if node == nil {
		return 0, fmt.Errorf("雪花节点未初始化")
	}
	return node.Generate().Int64(), nil
}
