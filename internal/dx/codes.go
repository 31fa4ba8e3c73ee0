package dx

import "fmt"

// Activity is the awards programme named by a CQGMA identifier tag.
type Activity int

// Activities, in wire-code order (01..08).
const (
	ActivityWWFF Activity = iota + 1
	ActivityIOTA
	ActivityCOTA
	ActivitySOTA
	ActivityGMA
	ActivityLighthouses
	ActivityRDA
	ActivityAGCW
)

var activityNames = map[Activity]string{
	ActivityWWFF:        "Flora&Fauna",
	ActivityIOTA:        "Islands",
	ActivityCOTA:        "Castles",
	ActivitySOTA:        "Summits",
	ActivityGMA:         "GlobalMountainActivity",
	ActivityLighthouses: "Lighthouses",
	ActivityRDA:         "RDA",
	ActivityAGCW:        "AGCW",
}

// ParseActivity maps a two digit wire code ("01".."08") to an Activity.
func ParseActivity(code string) (Activity, bool) {
	if len(code) != 2 || code[0] != '0' || code[1] < '1' || code[1] > '8' {
		return 0, false
	}
	return Activity(code[1] - '0'), true
}

// Code returns the two digit wire code.
func (a Activity) Code() string { return fmt.Sprintf("%02d", int(a)) }

func (a Activity) String() string {
	if name, ok := activityNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Activity(%d)", int(a))
}

// MarshalText encodes the activity by name.
func (a Activity) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Source is the spotting service that relayed a spot to the cluster.
type Source byte

// Sources, keyed by their single letter wire code.
const (
	SourceDXCluster    Source = 'd'
	SourceSmartWWFF    Source = 'f'
	SourceGMAWatch     Source = 'g'
	SourceSmartGMA     Source = 'm'
	SourceRBN          Source = 'r'
	SourceSOTAWatchRSS Source = 's'
	SourceRRT          Source = 't'
	SourceUDXLog       Source = 'u'
	SourceVKSpots      Source = 'v'
	SourceWWFFWatch    Source = 'w'
	SourceSMS          Source = 'x'
)

var sourceNames = map[Source]string{
	SourceDXCluster:    "DX-cluster",
	SourceSmartWWFF:    "smartWWFF",
	SourceGMAWatch:     "GMAwatch",
	SourceSmartGMA:     "smartGMA",
	SourceRBN:          "RBN",
	SourceSOTAWatchRSS: "SOTAwatch-RSS",
	SourceRRT:          "RRT",
	SourceUDXLog:       "UDXlog",
	SourceVKSpots:      "VK-spots",
	SourceWWFFWatch:    "WWFF-watch",
	SourceSMS:          "SMS",
}

// ParseSource maps a single letter wire code to a Source.
// Letters are case sensitive.
func ParseSource(letter byte) (Source, bool) {
	s := Source(letter)
	if _, ok := sourceNames[s]; !ok {
		return 0, false
	}
	return s, true
}

// Letter returns the wire code.
func (s Source) Letter() byte { return byte(s) }

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Source(%q)", byte(s))
}

// MarshalText encodes the source by name.
func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
