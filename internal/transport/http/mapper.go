package http

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/vovakirdan/supportchat-server/internal/core"
	"github.com/vovakirdan/supportchat-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Event {
	case proto.InboundJoinConversation, proto.InboundLeaveConversation:
		var data proto.ConversationData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest("invalid payload")
		}
		if data.ConversationID == "" {
			return nil, badRequest("conversationId is required")
		}
		kind := core.CommandJoinRoom
		if inbound.Event == proto.InboundLeaveConversation {
			kind = core.CommandLeaveRoom
		}
		return &core.Command{Kind: kind, Room: data.ConversationID}, nil
	case proto.InboundSendMessage:
		var data proto.SendMessageData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest("invalid payload")
		}
		if data.ConversationID == "" {
			return nil, badRequest("conversationId is required")
		}
		if strings.TrimSpace(data.Content) == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "content is required", ConversationID: data.ConversationID}
		}
		return &core.Command{Kind: core.CommandSendMessage, Room: data.ConversationID, Content: data.Content}, nil
	case proto.InboundTyping:
		var data proto.TypingData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest("invalid payload")
		}
		if data.ConversationID == "" {
			return nil, badRequest("conversationId is required")
		}
		return &core.Command{Kind: core.CommandTyping, Room: data.ConversationID, IsTyping: data.IsTyping}, nil
	case proto.InboundRequestSuggestion:
		var data proto.SuggestionRequestData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest("invalid payload")
		}
		if data.ConversationID == "" {
			return nil, badRequest("conversationId is required")
		}
		return &core.Command{Kind: core.CommandRequestSuggestion, Room: data.ConversationID, Content: data.UserMessage}, nil
	case proto.InboundApproveSuggestion, proto.InboundRejectSuggestion:
		var data proto.SuggestionDecisionData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest("invalid payload")
		}
		if data.ConversationID == "" || data.SuggestionID == "" {
			return nil, badRequest("conversationId and suggestionId are required")
		}
		kind := core.CommandApproveSuggestion
		if inbound.Event == proto.InboundRejectSuggestion {
			kind = core.CommandRejectSuggestion
		}
		return &core.Command{Kind: kind, Room: data.ConversationID, SuggestionID: data.SuggestionID}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeUnknownEvent, Msg: "unknown event: " + inbound.Event}
	}
}

func decodeData(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	return json.Unmarshal(raw, dst)
}

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventNewMessage:
		return proto.Outbound{
			Event: proto.OutboundNewMessage,
			Data:  chatMessageFromCore(event.Message),
		}
	case core.EventTyping:
		return proto.Outbound{
			Event: proto.OutboundTyping,
			Data: proto.TypingEvent{
				ConversationID: event.Room,
				User:           event.User,
				IsTyping:       event.IsTyping,
			},
		}
	case core.EventSuggestion:
		return proto.Outbound{
			Event: proto.OutboundSuggestion,
			Data: proto.SuggestionEvent{
				ConversationID: event.Room,
				Suggestion:     suggestionFromCore(event.Suggestion),
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Event: proto.OutboundError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Event: proto.OutboundError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message, ConversationID: event.Room},
		}
	default:
		return proto.Outbound{Event: proto.OutboundError, Error: &proto.Error{Code: "unknown", Msg: "unknown event"}}
	}
}

func chatMessageFromCore(msg core.Message) proto.ChatMessage {
	return proto.ChatMessage{
		ID:             msg.ID,
		ConversationID: msg.Room,
		Content:        msg.Content,
		Sender:         string(msg.Sender),
		Timestamp:      msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func suggestionFromCore(s *core.Suggestion) proto.Suggestion {
	if s == nil {
		return proto.Suggestion{Sources: []proto.SuggestionSource{}}
	}
	sources := make([]proto.SuggestionSource, 0, len(s.Sources))
	for _, src := range s.Sources {
		sources = append(sources, proto.SuggestionSource{
			FAQID:     src.FAQID,
			Question:  src.Question,
			Relevance: src.Relevance,
		})
	}
	return proto.Suggestion{
		ID:         s.ID,
		Message:    s.Message,
		Confidence: s.Confidence,
		Sources:    sources,
	}
}
