package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomList carries the current room list.
	EventRoomList EventKind = iota
	// EventCreateRoomResult answers a createRoom command.
	EventCreateRoomResult
	// EventJoinRoomResult answers a joinRoom command.
	EventJoinRoomResult
	// EventEnterLobbyResult answers an enterLobby command.
	EventEnterLobbyResult
	// EventNewMessage notifies room subscribers about a new message.
	EventNewMessage
	// EventMessageDeleted notifies room subscribers about a removed message.
	EventMessageDeleted
	// EventRoomSettings answers a getRoomSettings command.
	EventRoomSettings
	// EventMemberListUpdated tells subscribers to refetch the member list.
	EventMemberListUpdated
	// EventRoomInfoUpdated notifies subscribers about a rename.
	EventRoomInfoUpdated
	// EventLeftGroup confirms a leaveGroup to the caller.
	EventLeftGroup
	// EventGroupDeleted notifies subscribers that the room is gone.
	EventGroupDeleted
	// EventInvitation is pushed to an invited user.
	EventInvitation
	// EventInviteAccepted confirms an acceptInvite to the caller.
	EventInviteAccepted
	// EventInviteResult answers an inviteMember command. It goes out as createRoomResult.
	EventInviteResult
	// EventError notifies clients about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
// Events may be shared between clients and must not be mutated after emission.
type Event struct {
	Kind        EventKind
	Room        string
	DisplayName string

	OK      bool
	Msg     string
	IsAdmin bool

	Message  Message
	Messages []Message
	Rooms    []RoomSummary
	Settings *RoomSettings

	Inviter   string
	MessageID string
	NewName   string

	Error *CoreError
}

// RoomSummary is one entry of the room list.
type RoomSummary struct {
	ID          string
	DisplayName string
	HasPassword bool
	Members     []string
	MemberCount int
	OnlineCount int
}

// RoomSettings describes a room and its members.
type RoomSettings struct {
	Room        string
	DisplayName string
	Admin       string
	OnlineCount int
	Members     []MemberInfo
}

// MemberInfo describes one member in RoomSettings.
type MemberInfo struct {
	Email         string
	Nickname      string
	GroupNickname string
	Avatar        *string
	IsAdmin       bool
}
