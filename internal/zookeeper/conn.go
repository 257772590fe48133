// internal/zookeeper/conn.go
package zookeeper

import (
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
)

// Conn 封装了 ZooKeeper 会话连接。
type Conn struct {
	*zk.Conn
}

// Connect 建立到 ZooKeeper 集群的会话。
// addrs 格式为 "ip1:port1,ip2:port2"。
func Connect(addrs string, sessionTimeout time.Duration) (*Conn, error) {
	servers := strings.Split(addrs, ",")
	conn, _, err := zk.Connect(servers, sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to zookeeper at %s", addrs)
	}
	return &Conn{Conn: conn}, nil
}

// EnsurePath 逐级创建持久节点，已存在时静默返回。
func (c *Conn) EnsurePath(path string) error {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	current := ""
	for _, part := range parts {
		current += "/" + part
		_, err := c.Create(current, []byte{}, 0, zk.WorldACL(zk.PermAll))
		if err != nil && err != zk.ErrNodeExists {
			return errors.Wrapf(err, "failed to create node %s", current)
		}
	}
	return nil
}
