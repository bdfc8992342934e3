package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateServerID 实例 ID，优先使用环境变量 CWC_SERVER_ID
func GenerateServerID() string {
	if serverID := os.Getenv("CWC_SERVER_ID"); serverID != "" {
		return serverID
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("cwc-bridge-%s-%s", hostname, uuid.NewString()[:8])
}
