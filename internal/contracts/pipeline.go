package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 스냅샷, DB row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3
//   Align  Features  Fit  Sample

// Stage represents a pipeline stage
type Stage string

const (
	// StageAlign S0: 원시 가격 정렬 및 품질 검증
	// 책임: 영업일 캘린더 생성, forward-fill, 누락 티커 경고
	// 위치: internal/s0_data/
	StageAlign Stage = "S0_ALIGN"

	// StageFeatures S1: 피처 계산
	// 책임: 자산별 로그 수익률, 20일 실현 변동성
	// 위치: internal/features/
	StageFeatures Stage = "S1_FEATURES"

	// StageFit S2: 수익률 분포 추정
	// 책임: wide pivot, 평균/공분산 추정, 공분산 정규화
	// 위치: internal/models/
	StageFit Stage = "S2_FIT"

	// StageSample S3: 경로 샘플링
	// 책임: 시나리오 × 스텝 × 자산 수익률 경로 생성, 경로 리스크 요약
	// 위치: internal/models/, internal/risk/
	StageSample Stage = "S3_SAMPLE"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageAlign:
		return "S0"
	case StageFeatures:
		return "S1"
	case StageFit:
		return "S2"
	case StageSample:
		return "S3"
	default:
		return "UNKNOWN"
	}
}

// Description returns Korean description of the stage
func (s Stage) Description() string {
	switch s {
	case StageAlign:
		return "캘린더 정렬/품질 검증"
	case StageFeatures:
		return "수익률/변동성 피처 계산"
	case StageFit:
		return "수익률 분포 추정"
	case StageSample:
		return "수익률 경로 샘플링"
	default:
		return "알 수 없음"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageAlign,
		StageFeatures,
		StageFit,
		StageSample,
	}
}

// PipelineResult represents the result of a pipeline stage execution
type PipelineResult struct {
	Stage       Stage                  `json:"stage"`
	Success     bool                   `json:"success"`
	InputCount  int                    `json:"input_count"`
	OutputCount int                    `json:"output_count"`
	Duration    int64                  `json:"duration_ms"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
