package db

import "time"

// User is a registered account.
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Avatar       string    `json:"avatar"`
	Tag          string    `json:"tag"`
	CreatedAt    time.Time `json:"createTime"`
	LastLoginAt  time.Time `json:"lastLoginTime"`
}

// Group is a chat group. Creator is empty only for the default group before
// its first registered user claims it.
type Group struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Avatar       string    `json:"avatar"`
	Announcement string    `json:"announcement"`
	Creator      string    `json:"creator,omitempty"`
	IsDefault    bool      `json:"isDefault"`
	Members      []string  `json:"-"`
	CreatedAt    time.Time `json:"createTime"`
}

// HasMember reports whether userID belongs to the group.
func (g *Group) HasMember(userID string) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// Friend is a one-way friendship edge.
type Friend struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	CreatedAt time.Time `json:"createTime"`
}

// Message is a stored chat message. To is either a group id or a pairwise linkman id.
type Message struct {
	ID        string    `json:"_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createTime"`
}

// ClientInfo describes the client software behind a connection.
type ClientInfo struct {
	OS          string `json:"os"`
	Browser     string `json:"browser"`
	Environment string `json:"environment"`
}

// SocketRecord is the stored view of one live connection.
type SocketRecord struct {
	ID     string `json:"id"`
	UserID string `json:"user,omitempty"`
	IP     string `json:"ip"`
	ClientInfo
	CreatedAt time.Time `json:"createTime"`
}
