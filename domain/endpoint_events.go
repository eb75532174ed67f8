package domain

type endpointEventKind uint8

const (
	// unknown
	unknown endpointEventKind = iota

	// I/O
	evPong // pong を受信した

	// ctrl
	evClose  // セッション終了
	evAssign // ルーム割り当て
)

type endpointEvent struct {
	kind   endpointEventKind
	roomID RoomID
	err    error
}
