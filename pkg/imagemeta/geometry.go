package imagemeta

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// rbdToFRD aligns the image axes (right, below, down) with the world frame
// the pose angles are expressed in (front, right, down).
var rbdToFRD = mat.NewDense(3, 3, []float64{
	0, -1, 0,
	1, 0, 0,
	0, 0, 1,
})

// RotationMatrix returns the camera-to-world rotation built from the pose
// angles, composing roll, then pitch, then yaw.
func (m *Metadata) RotationMatrix() (*mat.Dense, error) {
	if m.Rotation == nil {
		return nil, ErrNoRotation
	}
	roll := radians(m.Rotation.Roll)
	pitch := radians(m.Rotation.Pitch)
	yaw := radians(m.Rotation.Yaw)

	rollMat := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, math.Cos(roll), -math.Sin(roll),
		0, math.Sin(roll), math.Cos(roll),
	})
	pitchMat := mat.NewDense(3, 3, []float64{
		math.Cos(pitch), 0, math.Sin(pitch),
		0, 1, 0,
		-math.Sin(pitch), 0, math.Cos(pitch),
	})
	yawMat := mat.NewDense(3, 3, []float64{
		math.Cos(yaw), -math.Sin(yaw), 0,
		math.Sin(yaw), math.Cos(yaw), 0,
		0, 0, 1,
	})

	tilt := mat.NewDense(3, 3, nil)
	tilt.Mul(pitchMat, rollMat)
	rotation := mat.NewDense(3, 3, nil)
	rotation.Mul(yawMat, tilt)
	return rotation, nil
}

// IntrinsicsMatrix returns the pinhole camera matrix in pixel units, with
// the principal point at the image center.
func (m *Metadata) IntrinsicsMatrix() (*mat.Dense, error) {
	if m.FocalLength == nil {
		return nil, ErrNoFocalLength
	}
	f := *m.FocalLength
	return mat.NewDense(3, 3, []float64{
		f, 0, float64(m.Width) / 2,
		0, f, float64(m.Height) / 2,
		0, 0, 1,
	}), nil
}

// PixelRay returns the world-frame ray from the camera center through the
// given pixel.
func (m *Metadata) PixelRay(x, y float64) (*mat.VecDense, error) {
	rotation, err := m.RotationMatrix()
	if err != nil {
		return nil, err
	}
	intrinsics, err := m.IntrinsicsMatrix()
	if err != nil {
		return nil, err
	}
	var inverse mat.Dense
	if err := inverse.Inverse(intrinsics); err != nil {
		return nil, fmt.Errorf("imagemeta: inverting the camera matrix: %w", err)
	}

	camera := mat.NewVecDense(3, nil)
	camera.MulVec(&inverse, mat.NewVecDense(3, []float64{x, y, 1}))
	aligned := mat.NewVecDense(3, nil)
	aligned.MulVec(rbdToFRD, camera)
	world := mat.NewVecDense(3, nil)
	world.MulVec(rotation, aligned)
	return world, nil
}

// GSD returns the ground distance in millimeters covered by one pixel at
// the given image coordinates, rounded to two decimals.
func (m *Metadata) GSD(x, y float64) (float64, error) {
	if m.Altitude == nil {
		return 0, ErrNoAltitude
	}
	if m.FocalLength == nil {
		return 0, ErrNoFocalLength
	}
	ray, err := m.PixelRay(x, y)
	if err != nil {
		return 0, err
	}
	// The ray's down component scales the pixel's effective focal length.
	gsd := *m.Altitude / (ray.AtVec(2) * *m.FocalLength) * 1000
	return math.Round(gsd*100) / 100, nil
}

// NadirAngle returns the angle in degrees between the pixel's ray and the
// straight-down axis. Zero means the pixel images the spot directly below
// the camera.
func (m *Metadata) NadirAngle(x, y float64) (float64, error) {
	ray, err := m.PixelRay(x, y)
	if err != nil {
		return 0, err
	}
	return degrees(math.Acos(ray.AtVec(2) / mat.Norm(ray, 2))), nil
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
