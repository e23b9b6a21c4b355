package station

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jlaffaye/ftp"
)

// MetFeed is the last-resort station: the national met service publishes an
// observation XML file over anonymous FTP, refreshed every 10 minutes.
// Values are metric (m/s) already.
type MetFeed struct {
	name      string
	priority  int
	host      string
	path      string
	stationID string
}

func NewMetFeed(name, host, path, stationID string, priority int) *MetFeed {
	return &MetFeed{
		name:      name,
		priority:  priority,
		host:      host,
		path:      path,
		stationID: stationID,
	}
}

func (m *MetFeed) Name() string  { return m.name }
func (m *MetFeed) Priority() int { return m.priority }

type metObservations struct {
	XMLName  xml.Name     `xml:"observations"`
	Stations []metStation `xml:"station"`
}

type metStation struct {
	ID  string   `xml:"id,attr"`
	Obs []metObs `xml:"obs"`
}

type metObs struct {
	TimeUTC  string     `xml:"time-utc,attr"`
	Elements []metValue `xml:"element"`
}

type metValue struct {
	Type  string `xml:"type,attr"`
	Units string `xml:"units,attr"`
	Value string `xml:",chardata"`
}

func (m *MetFeed) Fetch(ctx context.Context) (*Reading, error) {
	conn, err := ftp.Dial(m.host, ftp.DialWithTimeout(20*time.Second), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous"); err != nil {
		return nil, fmt.Errorf("ftp login: %w", err)
	}

	resp, err := conn.Retr(m.path)
	if err != nil {
		return nil, fmt.Errorf("ftp retr: %w", err)
	}
	defer resp.Close()

	body, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var doc metObservations
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var target *metStation
	for i := range doc.Stations {
		if doc.Stations[i].ID == m.stationID {
			target = &doc.Stations[i]
			break
		}
	}
	if target == nil || len(target.Obs) == 0 {
		return nil, fmt.Errorf("%w: station %s not in feed", ErrMalformedPayload, m.stationID)
	}

	// The feed lists observations newest first.
	obs := target.Obs[0]
	measuredAt, err := time.Parse(time.RFC3339, obs.TimeUTC)
	if err != nil {
		return nil, fmt.Errorf("%w: bad time %q", ErrMalformedPayload, obs.TimeUTC)
	}

	r := &Reading{
		StationID:  m.name,
		MeasuredAt: measuredAt.UTC(),
	}
	haveSpeed, haveDir := false, false
	for _, el := range obs.Elements {
		v, perr := strconv.ParseFloat(el.Value, 64)
		if perr != nil {
			continue
		}
		switch el.Type {
		case "wind_spd":
			r.WindSpeed = v
			haveSpeed = true
		case "wind_gust_spd":
			r.WindGust = v
		case "wind_dir_deg":
			r.WindDir = int(v)
			haveDir = true
		case "air_temperature":
			t := v
			r.Temp = &t
		case "rel_humidity":
			h := int(v)
			r.Humidity = &h
		case "msl_pres":
			p := v
			r.Pressure = &p
		}
	}
	if !haveSpeed || !haveDir {
		return nil, fmt.Errorf("%w: incomplete wind observation", ErrMalformedPayload)
	}
	if r.WindGust < r.WindSpeed {
		r.WindGust = r.WindSpeed
	}

	return r, nil
}
