package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Client to server event names.
const (
	InboundEnterLobby           = "enterLobby"
	InboundCreateRoom           = "createRoom"
	InboundJoinRoom             = "joinRoom"
	InboundGetRoomSettings      = "getRoomSettings"
	InboundSendMessage          = "sendMessage"
	InboundDeleteMessage        = "deleteMessage"
	InboundKickMember           = "kickMember"
	InboundUpdateMemberNickname = "updateMemberNickname"
	InboundLeaveGroup           = "leaveGroup"
	InboundDeleteGroup          = "deleteGroup"
	InboundChangeGroupName      = "changeGroupName"
	InboundInviteMember         = "inviteMember"
	InboundAcceptInvite         = "acceptInvite"
)

// Server to client event names.
const (
	EventRoomList          = "roomList"
	EventCreateRoomResult  = "createRoomResult"
	EventJoinRoomResult    = "joinRoomResult"
	EventEnterLobbyResult  = "enterLobbyResult"
	EventNewMessage        = "newMessage"
	EventMessageDeleted    = "messageDeleted"
	EventRoomSettingsData  = "roomSettingsData"
	EventMemberListUpdated = "memberListUpdated"
	EventRoomInfoUpdated   = "roomInfoUpdated"
	EventLeftGroupSuccess  = "leftGroupSuccess"
	EventGroupDeleted      = "groupDeleted"
	EventReceiveInvitation = "receiveInvitation"
	EventInviteAccepted    = "inviteAccepted"
)

// UserData identifies the sender of enterLobby and joinRoom.
type UserData struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Token    string `json:"token,omitempty"`
}

type CreateRoomData struct {
	RoomName     string `json:"roomName"`
	Password     string `json:"password"`
	CreatorEmail string `json:"creatorEmail"`
}

type JoinRoomData struct {
	RoomName string    `json:"roomName"`
	Password string    `json:"password"`
	User     *UserData `json:"user"`
}

type SendMessageData struct {
	RoomName string `json:"roomName"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	FileName string `json:"fileName"`
}

type DeleteMessageData struct {
	RoomName  string `json:"roomName"`
	MessageID string `json:"messageId"`
}

type MemberData struct {
	RoomName    string `json:"roomName"`
	TargetEmail string `json:"targetEmail"`
	NewNickname string `json:"newNickname,omitempty"`
}

// RoomData is the payload of leaveGroup, deleteGroup and acceptInvite.
type RoomData struct {
	RoomName string `json:"roomName"`
}

type ChangeGroupNameData struct {
	RoomName string `json:"roomName"`
	NewName  string `json:"newName"`
}

type InviteMemberData struct {
	RoomName       string `json:"roomName"`
	TargetNickname string `json:"targetNickname"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Message is a chat message on the wire.
type Message struct {
	ID          string    `json:"id"`
	RoomName    string    `json:"roomName"`
	User        string    `json:"user,omitempty"`
	SenderEmail string    `json:"senderEmail,omitempty"`
	Avatar      *string   `json:"avatar,omitempty"`
	Type        string    `json:"type"`
	Content     string    `json:"content"`
	FileName    string    `json:"fileName,omitempty"`
	Time        time.Time `json:"time"`
}

type RoomListEntry struct {
	Name        string   `json:"name"`
	RealName    string   `json:"realName"`
	HasPassword bool     `json:"hasPassword"`
	Members     []string `json:"members"`
	MemberCount int      `json:"memberCount"`
	OnlineCount int      `json:"onlineCount"`
}

// Result answers createRoom and inviteMember.
type Result struct {
	OK          bool   `json:"ok"`
	Msg         string `json:"msg,omitempty"`
	RoomName    string `json:"roomName,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

type JoinRoomResult struct {
	OK          bool      `json:"ok"`
	Msg         string    `json:"msg,omitempty"`
	RoomName    string    `json:"roomName,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	Messages    []Message `json:"messages"`
	IsAdmin     bool      `json:"isAdmin"`
}

type EnterLobbyResult struct {
	RoomName    string    `json:"roomName"`
	DisplayName string    `json:"displayName"`
	Messages    []Message `json:"messages"`
}

type NewMessage struct {
	RoomName string  `json:"roomName"`
	Message  Message `json:"message"`
}

type MessageDeleted struct {
	RoomName  string `json:"roomName"`
	MessageID string `json:"messageId"`
}

type MemberDetails struct {
	Email         string  `json:"email"`
	Nickname      string  `json:"nickname"`
	GroupNickname string  `json:"groupNickname"`
	Avatar        *string `json:"avatar"`
	IsAdmin       bool    `json:"isAdmin"`
}

type RoomSettingsData struct {
	RoomName    string          `json:"roomName"`
	DisplayName string          `json:"displayName"`
	Admin       string          `json:"admin"`
	OnlineCount int             `json:"onlineCount"`
	Members     []MemberDetails `json:"members"`
}

// RoomEvent carries just the room id (memberListUpdated, leftGroupSuccess,
// groupDeleted, inviteAccepted).
type RoomEvent struct {
	RoomName string `json:"roomName"`
}

type RoomInfoUpdated struct {
	RoomName string `json:"roomName"`
	NewName  string `json:"newName"`
}

type Invitation struct {
	RoomName        string `json:"roomName"`
	RoomDisplayName string `json:"roomDisplayName"`
	Inviter         string `json:"inviter"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
