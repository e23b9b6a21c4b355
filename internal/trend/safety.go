package trend

// Direction bands relative to the spot shoreline. Offshore wind pushes a
// rider out to open water, so it is dangerous at any speed.
const (
	onshoreFrom  = 45
	onshoreTo    = 135
	offshoreFrom = 225
	offshoreTo   = 315
)

type DirectionClass string

const (
	DirOnshore   DirectionClass = "onshore"
	DirSideshore DirectionClass = "sideshore"
	DirOffshore  DirectionClass = "offshore"
)

type SpeedClass string

const (
	SpeedCalm    SpeedClass = "calm"
	SpeedLight   SpeedClass = "light"
	SpeedGood    SpeedClass = "good"
	SpeedHigh    SpeedClass = "high"
	SpeedExtreme SpeedClass = "extreme"
)

type SafetyLevel string

const (
	SafetyUnrideable SafetyLevel = "unrideable"
	SafetyMarginal   SafetyLevel = "marginal"
	SafetyGood       SafetyLevel = "good"
	SafetyDangerous  SafetyLevel = "dangerous"
)

// Assessment combines direction and speed into a rideability verdict.
type Assessment struct {
	Direction DirectionClass `json:"direction"`
	Speed     SpeedClass     `json:"speed"`
	Safety    SafetyLevel    `json:"safety"`
}

func ClassifyDirection(deg int) DirectionClass {
	deg = ((deg % 360) + 360) % 360
	switch {
	case deg >= onshoreFrom && deg <= onshoreTo:
		return DirOnshore
	case deg >= offshoreFrom && deg <= offshoreTo:
		return DirOffshore
	default:
		return DirSideshore
	}
}

func ClassifySpeed(ms float64) SpeedClass {
	switch {
	case ms < 3:
		return SpeedCalm
	case ms < 6:
		return SpeedLight
	case ms < 12:
		return SpeedGood
	case ms <= 20:
		return SpeedHigh
	default:
		return SpeedExtreme
	}
}

// Assess applies the safety table. Offshore always wins, regardless of speed.
func Assess(speed float64, dir int) Assessment {
	a := Assessment{
		Direction: ClassifyDirection(dir),
		Speed:     ClassifySpeed(speed),
	}

	switch {
	case a.Direction == DirOffshore:
		a.Safety = SafetyDangerous
	case a.Speed == SpeedExtreme:
		a.Safety = SafetyDangerous
	case a.Speed == SpeedCalm:
		a.Safety = SafetyUnrideable
	case a.Speed == SpeedLight:
		a.Safety = SafetyMarginal
	default:
		a.Safety = SafetyGood
	}
	return a
}
