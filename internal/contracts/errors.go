package contracts

import (
	"errors"
	"fmt"
)

// 파이프라인 오류 분류
// 모두 terminal: 코어 내부에서 재시도하지 않음 (재시도는 scheduler 책임)
var (
	// ErrInputMissing 원시 가격 소스가 비어 있거나 없음
	ErrInputMissing = errors.New("input missing")

	// ErrDataCoverage 정제 후 사용 가능한 수익률을 가진 자산이 없음
	ErrDataCoverage = errors.New("no assets with available returns")

	// ErrSchemaInconsistency 필드/컬럼 누락, 중복 키 등 스키마 불일치
	ErrSchemaInconsistency = errors.New("schema inconsistency")

	// ErrInvalidShape 샘플링 step/scenario 수가 양수가 아님
	ErrInvalidShape = errors.New("invalid shape")
)

// ErrInsufficientSamples 결측 없는 공통 관측일 수가 최소 기준 미만 (ErrDataCoverage로도 매칭됨)
var ErrInsufficientSamples = fmt.Errorf("insufficient overlapping observations: %w", ErrDataCoverage)
