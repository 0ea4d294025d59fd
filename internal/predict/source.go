package predict

import (
	"database/sql"
	"errors"
	"time"

	"github.com/enroll-data/footfall.report/internal/features"
	"github.com/enroll-data/footfall.report/internal/obsdb"
)

// StoreSource adapts the observation store to the feature reconstructor's
// history interface.
type StoreSource struct {
	DB *obsdb.DB
}

// FootfallBefore implements features.HistorySource.
func (s StoreSource) FootfallBefore(pincode string, before time.Time) ([]float64, error) {
	return s.DB.FootfallBefore(pincode, before)
}

// CenterInfo implements features.HistorySource. A pincode with no
// observations reports ok false rather than an error.
func (s StoreSource) CenterInfo(pincode string) (features.CenterInfo, bool, error) {
	info, err := s.DB.PincodeInfo(pincode)
	if errors.Is(err, sql.ErrNoRows) {
		return features.CenterInfo{}, false, nil
	}
	if err != nil {
		return features.CenterInfo{}, false, err
	}
	return features.CenterInfo{
		District:   info.District,
		State:      info.State,
		CenterType: info.CenterType,
	}, true, nil
}
