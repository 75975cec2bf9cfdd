package tbut

import "github.com/banshee-data/tearfilm.report/internal/tbut/l2polar"

type multiObserver []Observer

// MultiObserver fans callbacks out to each non-nil observer in order.
func MultiObserver(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) OnCalibrated(cal l2polar.Calibration, width, height int) {
	for _, o := range m {
		o.OnCalibrated(cal, width, height)
	}
}

func (m multiObserver) OnFrame(index int, timestamp float64, energies []float64) {
	for _, o := range m {
		o.OnFrame(index, timestamp, energies)
	}
}

func (m multiObserver) OnComplete(report *Report) {
	for _, o := range m {
		o.OnComplete(report)
	}
}
