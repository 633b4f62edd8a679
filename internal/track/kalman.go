package track

// Kalman filtering for a single track under a constant-velocity motion
// model. State is [cx, cy, vx, vy] over the box center; box width and
// height are carried alongside and refreshed from the latest matched
// detection rather than filtered. The predict/update steps are written
// out in closed form: the measurement extracts position only, so the
// innovation covariance is a 2x2 matrix inverted directly.

const (
	// minDeterminant guards the 2x2 innovation inversion.
	minDeterminant = 1e-9

	// Initial covariance: position tied to the first measurement,
	// velocity unobserved and therefore wide open.
	initPosVar = 1.0
	initVelVar = 1000.0
)

type kalmanState struct {
	cx, cy float64
	vx, vy float64
	w, h   float64

	// 4x4 covariance, row-major over [cx, cy, vx, vy].
	p [16]float64
}

func newKalmanState(b Box) *kalmanState {
	cx, cy := b.Center()
	k := &kalmanState{cx: cx, cy: cy, w: b.Width(), h: b.Height()}
	k.p[0*4+0] = initPosVar
	k.p[1*4+1] = initPosVar
	k.p[2*4+2] = initVelVar
	k.p[3*4+3] = initVelVar
	return k
}

// predict advances the state one frame step: x' = F x with
//
//	F = [1 0 1 0]
//	    [0 1 0 1]
//	    [0 0 1 0]
//	    [0 0 0 1]
//
// and P' = F P Fᵀ + Q, Q = diag(qPos, qPos, qVel, qVel). With dt fixed at
// one frame the products collapse to additions.
func (k *kalmanState) predict(qPos, qVel float64) {
	k.cx += k.vx
	k.cy += k.vy

	// F P: rows 0,1 absorb the velocity rows.
	var fp [16]float64
	for j := 0; j < 4; j++ {
		fp[0*4+j] = k.p[0*4+j] + k.p[2*4+j]
		fp[1*4+j] = k.p[1*4+j] + k.p[3*4+j]
		fp[2*4+j] = k.p[2*4+j]
		fp[3*4+j] = k.p[3*4+j]
	}
	// (F P) Fᵀ: columns 0,1 absorb the velocity columns.
	for i := 0; i < 4; i++ {
		k.p[i*4+0] = fp[i*4+0] + fp[i*4+2]
		k.p[i*4+1] = fp[i*4+1] + fp[i*4+3]
		k.p[i*4+2] = fp[i*4+2]
		k.p[i*4+3] = fp[i*4+3]
	}

	k.p[0*4+0] += qPos
	k.p[1*4+1] += qPos
	k.p[2*4+2] += qVel
	k.p[3*4+3] += qVel
}

// update folds a matched detection into the state (standard Kalman
// correction). The box dimensions are taken from the measurement as-is.
func (k *kalmanState) update(b Box, measurementNoise float64) {
	zx, zy := b.Center()

	// Innovation.
	yx := zx - k.cx
	yy := zy - k.cy

	// S = H P Hᵀ + R with H = [1 0 0 0; 0 1 0 0].
	s00 := k.p[0*4+0] + measurementNoise
	s01 := k.p[0*4+1]
	s10 := k.p[1*4+0]
	s11 := k.p[1*4+1] + measurementNoise

	det := s00*s11 - s01*s10
	if det < minDeterminant {
		// Singular innovation covariance; skip the correction rather
		// than divide by (near-)zero. The next predict re-inflates P.
		k.w, k.h = b.Width(), b.Height()
		return
	}
	invS00 := s11 / det
	invS01 := -s01 / det
	invS10 := -s10 / det
	invS11 := s00 / det

	// Kalman gain K = P Hᵀ S⁻¹ (4x2).
	var gain [8]float64
	for i := 0; i < 4; i++ {
		gain[i*2+0] = k.p[i*4+0]*invS00 + k.p[i*4+1]*invS10
		gain[i*2+1] = k.p[i*4+0]*invS01 + k.p[i*4+1]*invS11
	}

	// x' = x + K y
	k.cx += gain[0*2+0]*yx + gain[0*2+1]*yy
	k.cy += gain[1*2+0]*yx + gain[1*2+1]*yy
	k.vx += gain[2*2+0]*yx + gain[2*2+1]*yy
	k.vy += gain[3*2+0]*yx + gain[3*2+1]*yy

	// P' = (I - K H) P. Because H selects the position rows, (K H)[i][j]
	// is K[i][0] for j==0, K[i][1] for j==1 and zero otherwise.
	var ikh [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			id := 0.0
			if i == j {
				id = 1.0
			}
			var kh float64
			switch j {
			case 0:
				kh = gain[i*2+0]
			case 1:
				kh = gain[i*2+1]
			}
			ikh[i*4+j] = id - kh
		}
	}
	var newP [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for l := 0; l < 4; l++ {
				sum += ikh[i*4+l] * k.p[l*4+j]
			}
			newP[i*4+j] = sum
		}
	}
	k.p = newP

	k.w, k.h = b.Width(), b.Height()
}

// box reconstructs the bounding box around the filtered center.
func (k *kalmanState) box() Box {
	return Box{
		X1: k.cx - k.w/2,
		Y1: k.cy - k.h/2,
		X2: k.cx + k.w/2,
		Y2: k.cy + k.h/2,
	}
}
