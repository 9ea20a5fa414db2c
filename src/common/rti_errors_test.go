package common

import (
	"errors"
	"testing"
)

func TestIsRTI(t *testing.T) {
	err := error(NewRTIErr(InvalidLogicalTime, "%d < %d", 3, 4))

	if !IsRTI(err, InvalidLogicalTime) {
		t.Fatalf("expected InvalidLogicalTime, got %v", err)
	}
	if IsRTI(err, InvalidLookahead) {
		t.Fatal("IsRTI matched the wrong code")
	}
	if IsRTI(errors.New("plain"), InvalidLogicalTime) {
		t.Fatal("IsRTI matched a plain error")
	}
	if err.Error() != "InvalidLogicalTime: 3 < 4" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestErrCode(t *testing.T) {
	code, text := ErrCode(nil)
	if code != NoError || text != "" {
		t.Fatalf("nil error gave %v %q", code, text)
	}

	code, _ = ErrCode(NewRTIErr(FederatesCurrentlyJoined, "2 joined"))
	if code != FederatesCurrentlyJoined {
		t.Fatalf("expected FederatesCurrentlyJoined, got %v", code)
	}

	code, text = ErrCode(errors.New("boom"))
	if code != RTIinternalError || text != "boom" {
		t.Fatalf("plain error gave %v %q", code, text)
	}
}

func TestErrClass(t *testing.T) {
	for code, class := range map[ErrType]ErrClass{
		FederationExecutionAlreadyExists: NamingConflict,
		ObjectInstanceNotKnown:           UnknownHandle,
		InTimeAdvancingState:             ProtocolState,
		ConnectionFailed:                 Transport,
		Unsupported:                      Internal,
	} {
		if code.Class() != class {
			t.Fatalf("%v: expected class %d, got %d", code, class, code.Class())
		}
	}
}
