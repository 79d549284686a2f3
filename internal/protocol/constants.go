package protocol

const (
	// GameName/GameVersion are logged at startup for operator visibility;
	// GameVersion is also the CLI's --version string.
	GameName    = "Skirmish"
	GameVersion = "0.1.0"

	// TickRate is the fixed simulation frequency required by §4.D.
	TickRate = 15

	// DefaultHost/DefaultPort are the transport defaults from §6.
	DefaultHost = "0.0.0.0"
	DefaultPort = 8765

	DefaultAdminHost = "0.0.0.0"
	DefaultAdminPort = 5000
)
