package http

import (
	"testing"

	"github.com/vovakirdan/groupchat-server/internal/core"
	"github.com/vovakirdan/groupchat-server/internal/proto"
)

func TestInviteOutcomeUsesCreateRoomResult(t *testing.T) {
	out := outboundFromEvent(&core.Event{Kind: core.EventInviteResult, Room: "room_1", OK: false, Msg: "bob is not online"})

	if out.Type != proto.OutboundTypeEvent || out.Event != proto.EventCreateRoomResult {
		t.Fatalf("expected createRoomResult event, got %+v", out)
	}
	res, ok := out.Data.(proto.Result)
	if !ok {
		t.Fatalf("unexpected payload type %T", out.Data)
	}
	if res.OK || res.Msg != "bob is not online" || res.RoomName != "" {
		t.Fatalf("unexpected payload: %+v", res)
	}
}

func TestInboundToCommandRoomRef(t *testing.T) {
	for _, raw := range []string{`"room_1"`, `{"roomName":"room_1"}`} {
		cmd, perr := inboundToCommand(proto.Inbound{Type: proto.InboundGetRoomSettings, Data: []byte(raw)})
		if perr != nil {
			t.Fatalf("%s: unexpected error %+v", raw, perr)
		}
		if cmd.Kind != core.CommandGetRoomSettings || cmd.Room != "room_1" {
			t.Fatalf("%s: unexpected command %+v", raw, cmd)
		}
	}
}
