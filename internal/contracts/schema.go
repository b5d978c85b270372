package contracts

// 다운스트림 텐서 규약: [num_windows, window_length, num_assets, num_features]
const (
	WindowLength = 60
	NumFeatures  = 3
)

// FeatureSlot names one position on the tensor's feature axis
type FeatureSlot string

const (
	SlotLogReturn1D    FeatureSlot = "log_return_1d"
	SlotRealizedVol20D FeatureSlot = "realized_vol_20d"
	SlotReserved       FeatureSlot = "reserved" // 향후 추가 피처용 예약 슬롯
)

// FeatureSchema is the ordered feature axis of the downstream tensor
var FeatureSchema = [NumFeatures]FeatureSlot{
	SlotLogReturn1D,
	SlotRealizedVol20D,
	SlotReserved,
}

// Tensor4DShape describes [num_windows, window_length, num_assets, num_features]
type Tensor4DShape struct {
	NumWindows   int `json:"num_windows"`
	WindowLength int `json:"window_length"`
	NumAssets    int `json:"num_assets"`
	NumFeatures  int `json:"num_features"`
}

// TensorShapeFor returns the shape downstream windowing would produce for a
// feature table spanning numDates calendar days (overlapping windows, stride 1)
func TensorShapeFor(numDates int) Tensor4DShape {
	windows := numDates - WindowLength + 1
	if windows < 0 {
		windows = 0
	}
	return Tensor4DShape{
		NumWindows:   windows,
		WindowLength: WindowLength,
		NumAssets:    len(CanonicalAssets),
		NumFeatures:  NumFeatures,
	}
}

// Dims returns the shape as a 4-element array
func (s Tensor4DShape) Dims() [4]int {
	return [4]int{s.NumWindows, s.WindowLength, s.NumAssets, s.NumFeatures}
}

// FeatureIndex returns the tensor feature position for a return field, or -1
func FeatureIndex(field ReturnField) int {
	for i, slot := range FeatureSchema {
		if string(slot) == string(field) {
			return i
		}
	}
	return -1
}
