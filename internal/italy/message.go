package italy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownMessageType = errors.New("unknown message type")

// MessageType is an exchange message code, 1 to 13.
type MessageType int16

const (
	MsgActivation MessageType = iota + 1
	MsgValidation
	MsgPorting
	MsgCancellation
	MsgTakingCharge
	MsgFulfilment
	MsgCessation
	MsgAdHoc
	MsgResidualCredit
	MsgAnomalousCreditUnblock
	MsgAmountUnblock
	MsgCutOverChange
	MsgCutOverChangeAck
)

var messageNames = [...]string{
	MsgActivation:             "ACTIVATION",
	MsgValidation:             "VALIDATION",
	MsgPorting:                "PORTING",
	MsgCancellation:           "CANCELLATION",
	MsgTakingCharge:           "TAKING_CHARGE",
	MsgFulfilment:             "FULFILMENT",
	MsgCessation:              "CESSATION",
	MsgAdHoc:                  "AD_HOC",
	MsgResidualCredit:         "RESIDUAL_CREDIT",
	MsgAnomalousCreditUnblock: "ANOMALOUS_CREDIT_UNBLOCK",
	MsgAmountUnblock:          "AMOUNT_UNBLOCK",
	MsgCutOverChange:          "CUT_OVER_CHANGE",
	MsgCutOverChangeAck:       "CUT_OVER_CHANGE_ACK",
}

func (m MessageType) Valid() bool {
	return m >= MsgActivation && m <= MsgCutOverChangeAck
}

func (m MessageType) String() string {
	if !m.Valid() {
		return fmt.Sprintf("MSG%d", int16(m))
	}
	return messageNames[m]
}

// Code is the schedule key of the type's window.
func (m MessageType) Code() string {
	return strconv.Itoa(int(m))
}

// CarriesAmount reports the credit messages whose body has an amount.
func (m MessageType) CarriesAmount() bool {
	return m == MsgResidualCredit || m == MsgAnomalousCreditUnblock || m == MsgAmountUnblock
}

// ActionType is the follow-up action scheduled when the type is received.
func (m MessageType) ActionType() string {
	return "SEND_MSG" + m.Code()
}

// ReceivedStatus is the process_status once the type has been received.
func (m MessageType) ReceivedStatus() string {
	return m.String() + "_RECEIVED"
}

// SentStatus is the process_status once the follow-up file was written.
func (m MessageType) SentStatus() string {
	return m.String() + "_SENT"
}

// ParseMessageType accepts "1".."13", optionally prefixed with "MSG".
func ParseMessageType(s string) (MessageType, error) {
	s = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "MSG")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMessageType, s)
	}
	m := MessageType(n)
	if !m.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownMessageType, n)
	}
	return m, nil
}

// MessageTypeOfAction is the inverse of ActionType.
func MessageTypeOfAction(action string) (MessageType, error) {
	if !strings.HasPrefix(action, "SEND_MSG") {
		return 0, fmt.Errorf("%w: action %q", ErrUnknownMessageType, action)
	}
	return ParseMessageType(strings.TrimPrefix(action, "SEND_"))
}
