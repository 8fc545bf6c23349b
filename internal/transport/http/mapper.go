package http

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/groupchat-server/internal/core"
	"github.com/vovakirdan/groupchat-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundEnterLobby:
		var user proto.UserData
		if err := decodeData(inbound.Data, &user); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{
			Kind:     core.CommandEnterLobby,
			Email:    user.Email,
			Nickname: user.Nickname,
			Token:    user.Token,
		}, nil
	case proto.InboundCreateRoom:
		var data proto.CreateRoomData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{
			Kind:     core.CommandCreateRoom,
			Room:     data.RoomName,
			Password: data.Password,
			Email:    data.CreatorEmail,
		}, nil
	case proto.InboundJoinRoom:
		var data proto.JoinRoomData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		cmd := &core.Command{
			Kind:     core.CommandJoinRoom,
			Room:     data.RoomName,
			Password: data.Password,
		}
		if data.User != nil {
			cmd.Email = data.User.Email
			cmd.Nickname = data.User.Nickname
			cmd.Token = data.User.Token
		}
		return cmd, nil
	case proto.InboundGetRoomSettings:
		room, err := decodeRoomRef(inbound.Data)
		if err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{Kind: core.CommandGetRoomSettings, Room: room}, nil
	case proto.InboundSendMessage:
		var data proto.SendMessageData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		if data.RoomName == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "roomName is required"}
		}
		return &core.Command{
			Kind:        core.CommandSendMessage,
			Room:        data.RoomName,
			MessageType: data.Type,
			Content:     data.Content,
			FileName:    data.FileName,
		}, nil
	case proto.InboundDeleteMessage:
		var data proto.DeleteMessageData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{
			Kind:      core.CommandDeleteMessage,
			Room:      data.RoomName,
			MessageID: data.MessageID,
		}, nil
	case proto.InboundKickMember, proto.InboundUpdateMemberNickname:
		var data proto.MemberData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		kind := core.CommandKickMember
		if inbound.Type == proto.InboundUpdateMemberNickname {
			kind = core.CommandUpdateMemberNickname
		}
		return &core.Command{
			Kind:        kind,
			Room:        data.RoomName,
			TargetEmail: data.TargetEmail,
			NewNickname: data.NewNickname,
		}, nil
	case proto.InboundLeaveGroup, proto.InboundDeleteGroup, proto.InboundAcceptInvite:
		var data proto.RoomData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		kind := core.CommandLeaveGroup
		switch inbound.Type {
		case proto.InboundDeleteGroup:
			kind = core.CommandDeleteGroup
		case proto.InboundAcceptInvite:
			kind = core.CommandAcceptInvite
		}
		return &core.Command{Kind: kind, Room: data.RoomName}, nil
	case proto.InboundChangeGroupName:
		var data proto.ChangeGroupNameData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{
			Kind:    core.CommandChangeGroupName,
			Room:    data.RoomName,
			NewName: data.NewName,
		}, nil
	case proto.InboundInviteMember:
		var data proto.InviteMemberData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{
			Kind:           core.CommandInviteMember,
			Room:           data.RoomName,
			TargetNickname: data.TargetNickname,
		}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

// decodeData unmarshals a payload; an absent payload leaves v zeroed.
func decodeData(data json.RawMessage, v any) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	return json.Unmarshal(data, v)
}

// decodeRoomRef accepts either a bare room id string or {"roomName": ...}.
func decodeRoomRef(data json.RawMessage) (string, error) {
	var room string
	if err := json.Unmarshal(data, &room); err == nil {
		return room, nil
	}
	var obj proto.RoomData
	if err := decodeData(data, &obj); err != nil {
		return "", fmt.Errorf("room reference: %w", err)
	}
	return obj.RoomName, nil
}

func badRequest(err error) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed payload: " + err.Error()}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	out := proto.Outbound{Type: proto.OutboundTypeEvent}

	switch event.Kind {
	case core.EventRoomList:
		rooms := make([]proto.RoomListEntry, 0, len(event.Rooms))
		for _, r := range event.Rooms {
			members := r.Members
			if members == nil {
				members = []string{}
			}
			rooms = append(rooms, proto.RoomListEntry{
				Name:        r.DisplayName,
				RealName:    r.ID,
				HasPassword: r.HasPassword,
				Members:     members,
				MemberCount: r.MemberCount,
				OnlineCount: r.OnlineCount,
			})
		}
		out.Event, out.Data = proto.EventRoomList, rooms
	case core.EventCreateRoomResult:
		out.Event, out.Data = proto.EventCreateRoomResult, proto.Result{
			OK:          event.OK,
			Msg:         event.Msg,
			RoomName:    event.Room,
			DisplayName: event.DisplayName,
		}
	case core.EventInviteResult:
		// Invite outcomes share the createRoomResult event with room creation.
		out.Event, out.Data = proto.EventCreateRoomResult, proto.Result{OK: event.OK, Msg: event.Msg}
	case core.EventJoinRoomResult:
		out.Event, out.Data = proto.EventJoinRoomResult, proto.JoinRoomResult{
			OK:          event.OK,
			Msg:         event.Msg,
			RoomName:    event.Room,
			DisplayName: event.DisplayName,
			Messages:    messagesToProto(event.Messages),
			IsAdmin:     event.IsAdmin,
		}
	case core.EventEnterLobbyResult:
		out.Event, out.Data = proto.EventEnterLobbyResult, proto.EnterLobbyResult{
			RoomName:    event.Room,
			DisplayName: event.DisplayName,
			Messages:    messagesToProto(event.Messages),
		}
	case core.EventNewMessage:
		out.Event, out.Data = proto.EventNewMessage, proto.NewMessage{
			RoomName: event.Room,
			Message:  messageToProto(event.Message),
		}
	case core.EventMessageDeleted:
		out.Event, out.Data = proto.EventMessageDeleted, proto.MessageDeleted{
			RoomName:  event.Room,
			MessageID: event.MessageID,
		}
	case core.EventRoomSettings:
		out.Event, out.Data = proto.EventRoomSettingsData, settingsToProto(event.Settings)
	case core.EventMemberListUpdated:
		out.Event, out.Data = proto.EventMemberListUpdated, proto.RoomEvent{RoomName: event.Room}
	case core.EventRoomInfoUpdated:
		out.Event, out.Data = proto.EventRoomInfoUpdated, proto.RoomInfoUpdated{
			RoomName: event.Room,
			NewName:  event.NewName,
		}
	case core.EventLeftGroup:
		out.Event, out.Data = proto.EventLeftGroupSuccess, proto.RoomEvent{RoomName: event.Room}
	case core.EventGroupDeleted:
		out.Event, out.Data = proto.EventGroupDeleted, proto.RoomEvent{RoomName: event.Room}
	case core.EventInvitation:
		out.Event, out.Data = proto.EventReceiveInvitation, proto.Invitation{
			RoomName:        event.Room,
			RoomDisplayName: event.DisplayName,
			Inviter:         event.Inviter,
		}
	case core.EventInviteAccepted:
		out.Event, out.Data = proto.EventInviteAccepted, proto.RoomEvent{RoomName: event.Room}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	}
	return out
}

func messageToProto(m core.Message) proto.Message {
	return proto.Message{
		ID:          m.ID,
		RoomName:    m.Room,
		User:        m.User,
		SenderEmail: m.SenderEmail,
		Avatar:      m.Avatar,
		Type:        m.Type,
		Content:     m.Content,
		FileName:    m.FileName,
		Time:        m.Time,
	}
}

func messagesToProto(msgs []core.Message) []proto.Message {
	out := make([]proto.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageToProto(m))
	}
	return out
}

func settingsToProto(s *core.RoomSettings) proto.RoomSettingsData {
	if s == nil {
		return proto.RoomSettingsData{Members: []proto.MemberDetails{}}
	}
	members := make([]proto.MemberDetails, 0, len(s.Members))
	for _, m := range s.Members {
		members = append(members, proto.MemberDetails{
			Email:         m.Email,
			Nickname:      m.Nickname,
			GroupNickname: m.GroupNickname,
			Avatar:        m.Avatar,
			IsAdmin:       m.IsAdmin,
		})
	}
	return proto.RoomSettingsData{
		RoomName:    s.Room,
		DisplayName: s.DisplayName,
		Admin:       s.Admin,
		OnlineCount: s.OnlineCount,
		Members:     members,
	}
}
