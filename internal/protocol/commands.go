package protocol

// Client -> Server
const (
	CmdJoin            = "JOIN"
	CmdTeam            = "TEAM"
	CmdCharacterSelect = "CHARACTER_SELECT"
	CmdReady           = "READY"
	CmdUnready         = "UNREADY"
	CmdStart           = "START"
	CmdPos             = "POS"
	CmdShoot           = "SHOOT"
	CmdHit             = "HIT"
	CmdHitMe           = "HITME"
	CmdHitObj          = "HIT_OBJ"
	CmdDeath           = "DEATH"
	CmdRespawn         = "RESPAWN"
	CmdChat            = "CHAT"
	CmdSkill           = "SKILL"
	CmdQuit            = "QUIT"
)

// Server -> Client
const (
	CmdWelcome         = "WELCOME"
	CmdReject          = "REJECT"
	CmdTeamRoster      = "TEAM_ROSTER"
	CmdGameStart       = "GAME_START"
	CmdStartDenied     = "START_DENIED"
	CmdCharacterDenied = "CHARACTER_DENIED"
	CmdPlayer          = "PLAYER"
	CmdRemove          = "REMOVE"
	CmdStats           = "STATS"
	CmdKill            = "KILL"
	CmdMissile         = "MISSILE"
	CmdObj             = "OBJ"
	CmdObjDestroy      = "OBJ_DESTROY"
	CmdBuff            = "BUFF"
	CmdUnbuff          = "UNBUFF"
	CmdStrike          = "STRIKE"
	CmdStrikeImpact    = "STRIKE_IMPACT"
	CmdTurretShoot     = "TURRET_SHOOT"
	CmdRoundStart      = "ROUND_START"
	CmdRoundEnd        = "ROUND_END"
	CmdGameEnd         = "GAME_END"
)

// bare keywords that may arrive without a ':' separator
var bareCommands = map[string]bool{
	CmdReady:     true,
	CmdUnready:   true,
	CmdStart:     true,
	CmdQuit:      true,
	CmdGameStart: true,
}
