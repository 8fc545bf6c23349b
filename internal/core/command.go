package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandEnterLobby binds the connection identity and subscribes it to the lobby.
	CommandEnterLobby CommandKind = iota
	// CommandCreateRoom creates a new room with the caller as admin.
	CommandCreateRoom
	// CommandJoinRoom adds the caller to a room (by id or display name) and subscribes it.
	CommandJoinRoom
	// CommandGetRoomSettings requests member details of a room.
	CommandGetRoomSettings
	// CommandSendMessage posts a message to a room.
	CommandSendMessage
	// CommandDeleteMessage removes a message from a room.
	CommandDeleteMessage
	// CommandKickMember removes a member from a room (admin only).
	CommandKickMember
	// CommandUpdateMemberNickname sets or clears a group nickname.
	CommandUpdateMemberNickname
	// CommandLeaveGroup removes the caller from a room.
	CommandLeaveGroup
	// CommandDeleteGroup disbands a room (admin only).
	CommandDeleteGroup
	// CommandChangeGroupName renames a room (admin only).
	CommandChangeGroupName
	// CommandInviteMember sends an invitation to an online user.
	CommandInviteMember
	// CommandAcceptInvite consumes a pending invitation.
	CommandAcceptInvite
)

var commandNames = [...]string{
	CommandEnterLobby:           "enterLobby",
	CommandCreateRoom:           "createRoom",
	CommandJoinRoom:             "joinRoom",
	CommandGetRoomSettings:      "getRoomSettings",
	CommandSendMessage:          "sendMessage",
	CommandDeleteMessage:        "deleteMessage",
	CommandKickMember:           "kickMember",
	CommandUpdateMemberNickname: "updateMemberNickname",
	CommandLeaveGroup:           "leaveGroup",
	CommandDeleteGroup:          "deleteGroup",
	CommandChangeGroupName:      "changeGroupName",
	CommandInviteMember:         "inviteMember",
	CommandAcceptInvite:         "acceptInvite",
}

func (k CommandKind) String() string {
	if k >= 0 && int(k) < len(commandNames) {
		return commandNames[k]
	}
	return "unknown"
}

// Command represents an action requested by a client.
// Only the fields relevant to Kind are set.
type Command struct {
	Kind CommandKind
	Room string

	// Identity claimed by the client (enterLobby/joinRoom user, createRoom creator).
	Email    string
	Nickname string
	Token    string

	Password       string
	TargetEmail    string
	TargetNickname string
	NewName        string
	NewNickname    string

	MessageType string
	Content     string
	FileName    string
	MessageID   string
}
