// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// Shapley値推定エンジンのエラー種別（入力不正、モデル呼び出し失敗、形状不一致、
// 加法性違反）と、処理を止めない警告（ソルバー縮退、収束失敗）を構造化して扱います。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("kernelshap-warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// SolverDegeneracyWarningやAdditivityViolation（warnモード）の処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
// nilを渡すと従来のハンドラに戻ります。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	エラー種別（errors.Is で判定可能な番兵値）
//
// ===========================================================================

var (
	// ErrInvalidInput は入力や設定が不正な場合の種別です。
	ErrInvalidInput = New("invalid input")

	// ErrModelQuery は外部モデルの呼び出しが失敗した場合の種別です。
	ErrModelQuery = New("model query failure")

	// ErrShapeMismatch はモデル出力の次元が呼び出し間で一致しない場合の種別です。
	ErrShapeMismatch = New("shape mismatch")

	// ErrAdditivity は加法性（局所精度）が許容誤差を超えて崩れた場合の種別です。
	ErrAdditivity = New("additivity violation")

	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")
)

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// InvalidInputError は空の背景データ、特徴量次元の不一致、ゼロ予算などの入力不正を表します。
type InvalidInputError struct {
	Op     string
	Param  string
	Reason string
	Value  interface{}
}

func (e *InvalidInputError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("kernelshap: %s: invalid input: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("kernelshap: %s: invalid input for '%s': %s (got: %v)", e.Op, e.Param, e.Reason, e.Value)
}

// Is はErrInvalidInputとの比較を可能にします。
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InvalidInputError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("param_name", e.Param).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "InvalidInputError")
}

// NewInvalidInputError は新しいInvalidInputErrorを作成し、スタックトレースを付与します。
func NewInvalidInputError(op, param, reason string, value interface{}) error {
	return errors.WithStack(&InvalidInputError{Op: op, Param: param, Reason: reason, Value: value})
}

// NewDimensionError は特徴量次元の不一致をInvalidInputErrorとして作成します。
func NewDimensionError(op string, expected, got int) error {
	return errors.WithStack(&InvalidInputError{
		Op:     op,
		Param:  "features",
		Reason: fmt.Sprintf("dimension mismatch, expected %d", expected),
		Value:  got,
	})
}

// ModelQueryError は外部モデルが失敗、または不正な出力を返した場合のエラーです。
// 原因のエラーはそのまま保持され、Unwrapで取り出せます。
type ModelQueryError struct {
	Op   string
	Rows int
	Err  error
}

func (e *ModelQueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kernelshap: %s: model query failed on %d rows: %v", e.Op, e.Rows, e.Err)
	}
	return fmt.Sprintf("kernelshap: %s: model query failed on %d rows", e.Op, e.Rows)
}

func (e *ModelQueryError) Unwrap() error {
	return e.Err
}

// Is はErrModelQueryとの比較を可能にします。
func (e *ModelQueryError) Is(target error) bool {
	return target == ErrModelQuery
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ModelQueryError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("rows", e.Rows).
		AnErr("cause", e.Err).
		Str("type", "ModelQueryError")
}

// NewModelQueryError は新しいModelQueryErrorを作成し、スタックトレースを付与します。
func NewModelQueryError(op string, rows int, err error) error {
	return errors.WithStack(&ModelQueryError{Op: op, Rows: rows, Err: err})
}

// ShapeMismatchError はモデル出力の形状が期待と異なる場合のエラーです。
type ShapeMismatchError struct {
	Op       string
	Expected []int // 期待される形状 (rows, outputs)
	Got      []int // 実際の形状
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("kernelshap: %s: model output shape mismatch. Expected shape %v, got %v",
		e.Op, e.Expected, e.Got)
}

// Is はErrShapeMismatchとの比較を可能にします。
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ShapeMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Ints("expected", e.Expected).
		Ints("got", e.Got).
		Str("type", "ShapeMismatchError")
}

// NewShapeMismatchError は新しいShapeMismatchErrorを作成し、スタックトレースを付与します。
func NewShapeMismatchError(op string, expected, got []int) error {
	return errors.WithStack(&ShapeMismatchError{Op: op, Expected: expected, Got: got})
}

// AdditivityViolationError は帰属値の合計がモデル出力とベース値の差に一致しない場合のエラーです。
// strictnessがwarnの場合は警告として、errorの場合はエラーとして扱われます。
type AdditivityViolationError struct {
	Output    int     // 出力次元
	Sum       float64 // 帰属値の合計
	Expected  float64 // model(x) - base value
	Gap       float64 // |Sum - Expected|
	Tolerance float64
}

func (e *AdditivityViolationError) Error() string {
	return fmt.Sprintf("kernelshap: additivity violated for output %d: sum of attributions %.6g, expected %.6g (gap %.3g > tolerance %.3g)",
		e.Output, e.Sum, e.Expected, e.Gap, e.Tolerance)
}

// Is はErrAdditivityとの比較を可能にします。
func (e *AdditivityViolationError) Is(target error) bool {
	return target == ErrAdditivity
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (e *AdditivityViolationError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("output", e.Output).
		Float64("sum", e.Sum).
		Float64("expected", e.Expected).
		Float64("gap", e.Gap).
		Float64("tolerance", e.Tolerance).
		Str("type", "AdditivityViolationError")
}

// NewAdditivityViolationError は新しいAdditivityViolationErrorを作成します。
// 警告としても使うため、スタックトレースは付与しません。
func NewAdditivityViolationError(output int, sum, expected, tolerance float64) *AdditivityViolationError {
	gap := sum - expected
	if gap < 0 {
		gap = -gap
	}
	return &AdditivityViolationError{
		Output:    output,
		Sum:       sum,
		Expected:  expected,
		Gap:       gap,
		Tolerance: tolerance,
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// SolverDegeneracyWarning は正規方程式がランク落ちし、擬似逆行列による最小ノルム解に
// フォールバックした場合の警告です。エラーではなく診断情報として扱われます。
type SolverDegeneracyWarning struct {
	Output    int
	Unknowns  int
	Rank      int
	Condition float64
}

func (w *SolverDegeneracyWarning) Error() string {
	return fmt.Sprintf("weighted least squares for output %d is rank deficient (rank %d of %d, cond %.3g); using minimum-norm solution",
		w.Output, w.Rank, w.Unknowns, w.Condition)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *SolverDegeneracyWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("output", w.Output).
		Int("unknowns", w.Unknowns).
		Int("rank", w.Rank).
		Float64("condition", w.Condition).
		Str("type", "SolverDegeneracyWarning")
}

// NewSolverDegeneracyWarning は新しいSolverDegeneracyWarningを作成します。
func NewSolverDegeneracyWarning(output, unknowns, rank int, condition float64) *SolverDegeneracyWarning {
	return &SolverDegeneracyWarning{Output: output, Unknowns: unknowns, Rank: rank, Condition: condition}
}

// ConvergenceWarning は最適化アルゴリズム（L1の座標降下法など）が収束しなかった場合の警告です。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or adjusting parameters.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}
