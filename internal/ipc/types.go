package ipc

import (
	"net"
	"sync"
)

type Command struct {
	ID      int      `json:"id"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

type Response struct {
	ID     int         `json:"id"`
	Error  string      `json:"error,omitempty"`
	Result interface{} `json:"result,omitempty"`
}

// SweepProgressUpdate is broadcast to every connected client while a sweep
// runs.
type SweepProgressUpdate struct {
	Refunded int  `json:"refunded"`
	Failed   int  `json:"failed"`
	Done     bool `json:"done"`
}

type Server struct {
	listener    net.Listener
	commands    chan Command
	mutex       sync.Mutex
	connections map[int]net.Conn // Maps command ID to the client connection
	subscribers map[net.Conn]bool
}

type Client struct {
	conn net.Conn
}
