package background

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/pkg/errors"
	"github.com/YuminosukeSato/kernelshap/preprocessing"
)

// kmeansConfig は重み付きK-means要約の設定
type kmeansConfig struct {
	maxIter     int     // 最大イテレーション数
	tol         float64 // 重心移動量（二乗和）の収束判定
	nInit       int     // 異なる初期化での実行回数
	seed        int64   // 乱数シード
	standardize bool    // クラスタリング前に標準化するか
	roundValues bool    // 重心を観測値に丸めるか
}

func defaultKMeansConfig() kmeansConfig {
	return kmeansConfig{
		maxIter: 300,
		tol:     1e-4,
		nInit:   10,
		seed:    0,
	}
}

// KMeansOption はKMeansの設定オプション
type KMeansOption func(*kmeansConfig)

// WithKMeansMaxIter は最大イテレーション数を設定
func WithKMeansMaxIter(maxIter int) KMeansOption {
	return func(c *kmeansConfig) {
		c.maxIter = maxIter
	}
}

// WithKMeansTol は収束判定の許容誤差を設定
func WithKMeansTol(tol float64) KMeansOption {
	return func(c *kmeansConfig) {
		c.tol = tol
	}
}

// WithKMeansNInit は初期化のやり直し回数を設定
func WithKMeansNInit(n int) KMeansOption {
	return func(c *kmeansConfig) {
		c.nInit = n
	}
}

// WithKMeansRandomState は乱数シードを設定
func WithKMeansRandomState(seed int64) KMeansOption {
	return func(c *kmeansConfig) {
		c.seed = seed
	}
}

// WithKMeansStandardize はクラスタリング前に特徴量を標準化する
//
// 重心は元の尺度に戻してから返される。
func WithKMeansStandardize(on bool) KMeansOption {
	return func(c *kmeansConfig) {
		c.standardize = on
	}
}

// WithKMeansRoundValues は各重心の座標を、その特徴量で実際に観測された
// 最も近い値に丸める
//
// カテゴリ値や整数値の特徴量で、存在しない値が背景に現れるのを防ぐ。
func WithKMeansRoundValues(on bool) KMeansOption {
	return func(c *kmeansConfig) {
		c.roundValues = on
	}
}

// KMeans は data を k 個の重み付き代表点に要約する
//
// k-means++ で初期化した Lloyd 法を nInit 回実行し、慣性が最小の結果を採用する。
// 各代表点の重みはクラスタに属する行の割合。空のクラスタは除かれるため、
// 返される Set の行数は k 以下になる。k が行数以上の場合は k を行数に切り詰める。
//
// 使用例:
//
//	bg, err := background.KMeans(X, 10, background.WithKMeansRandomState(42))
func KMeans(data mat.Matrix, k int, opts ...KMeansOption) (*Set, error) {
	cfg := defaultKMeansConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return kmeansSummarize(data, k, cfg)
}

func kmeansSummarize(data mat.Matrix, k int, cfg kmeansConfig) (*Set, error) {
	const op = "background.KMeans"
	if data == nil {
		return nil, errors.NewInvalidInputError(op, "data", "background data is nil", nil)
	}
	n, m := data.Dims()
	if n == 0 || m == 0 {
		return nil, errors.NewInvalidInputError(op, "data", "cannot summarize empty data", []int{n, m})
	}
	if k < 1 {
		return nil, errors.NewInvalidInputError(op, "k", "number of clusters must be at least 1", k)
	}
	if cfg.maxIter < 1 || cfg.nInit < 1 {
		return nil, errors.NewInvalidInputError(op, "options", "max iterations and restarts must be positive", []int{cfg.maxIter, cfg.nInit})
	}
	k = min(k, n)

	X := mat.DenseCopyOf(data)
	if err := errors.CheckNumericalStability(op, X.RawMatrix().Data); err != nil {
		return nil, err
	}

	var scaler *preprocessing.StandardScaler
	work := X
	if cfg.standardize {
		scaler = preprocessing.NewStandardScalerDefault()
		scaled, err := scaler.FitTransform(X)
		if err != nil {
			return nil, errors.Wrap(err, op)
		}
		work = mat.DenseCopyOf(scaled)
	}

	rng := rand.New(rand.NewSource(cfg.seed))

	// 複数回実行して最良の結果を選択
	bestInertia := math.Inf(1)
	var bestCenters [][]float64
	var bestLabels []int
	for run := 0; run < cfg.nInit; run++ {
		centers, labels, inertia := lloyd(work, k, cfg, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			bestCenters = centers
			bestLabels = labels
		}
	}

	// 空のクラスタを除き、所属割合を重みとする
	counts := make([]float64, k)
	for _, l := range bestLabels {
		counts[l]++
	}
	var kept [][]float64
	var weights []float64
	for c, cnt := range counts {
		if cnt == 0 {
			continue
		}
		kept = append(kept, bestCenters[c])
		weights = append(weights, cnt/float64(n))
	}

	centroids := mat.NewDense(len(kept), m, nil)
	for i, c := range kept {
		centroids.SetRow(i, c)
	}
	if scaler != nil {
		orig, err := scaler.InverseTransform(centroids)
		if err != nil {
			return nil, errors.Wrap(err, op)
		}
		centroids = mat.DenseCopyOf(orig)
	}
	if cfg.roundValues {
		roundToObserved(centroids, X)
	}
	return NewSet(centroids, weights)
}

// lloyd は k-means++ 初期化からの単一回の Lloyd 法を実行
func lloyd(X *mat.Dense, k int, cfg kmeansConfig, rng *rand.Rand) ([][]float64, []int, float64) {
	n, m := X.Dims()
	centers := initKMeansPlusPlus(X, k, rng)
	labels := make([]int, n)

	next := make([][]float64, k)
	for c := range next {
		next[c] = make([]float64, m)
	}
	counts := make([]int, k)

	for iter := 0; iter < cfg.maxIter; iter++ {
		// 各サンプルを最近傍クラスタに割り当て
		for i := 0; i < n; i++ {
			labels[i] = findNearestCluster(X.RawRowView(i), centers)
		}

		// クラスタ中心の更新
		for c := range next {
			clear(next[c])
			counts[c] = 0
		}
		for i, l := range labels {
			floats.Add(next[l], X.RawRowView(i))
			counts[l]++
		}
		shift := 0.0
		for c := range centers {
			if counts[c] == 0 {
				// 空のクラスタは中心を維持する
				copy(next[c], centers[c])
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
			d := floats.Distance(next[c], centers[c], 2)
			shift += d * d
		}
		for c := range centers {
			copy(centers[c], next[c])
		}

		// 収束判定
		if shift <= cfg.tol {
			break
		}
	}

	// 最終的なラベルと慣性の計算
	inertia := 0.0
	for i := 0; i < n; i++ {
		row := X.RawRowView(i)
		labels[i] = findNearestCluster(row, centers)
		d := floats.Distance(row, centers[labels[i]], 2)
		inertia += d * d
	}
	return centers, labels, inertia
}

// initKMeansPlusPlus はk-means++初期化を実行
func initKMeansPlusPlus(X *mat.Dense, k int, rng *rand.Rand) [][]float64 {
	n, m := X.Dims()
	centers := make([][]float64, k)

	// 最初のクラスタ中心をランダムに選択
	centers[0] = make([]float64, m)
	copy(centers[0], X.RawRowView(rng.Intn(n)))

	distances := make([]float64, n)
	for c := 1; c < k; c++ {
		// 各サンプルから最近傍クラスタ中心までの距離の二乗を計算
		total := 0.0
		for i := 0; i < n; i++ {
			row := X.RawRowView(i)
			minDist := math.Inf(1)
			for j := 0; j < c; j++ {
				if d := floats.Distance(row, centers[j], 2); d < minDist {
					minDist = d
				}
			}
			distances[i] = minDist * minDist
			total += distances[i]
		}

		// 確率に応じてサンプルを選択
		target := rng.Float64() * total
		cumSum := 0.0
		selected := 0
		for i := 0; i < n; i++ {
			cumSum += distances[i]
			if cumSum >= target {
				selected = i
				break
			}
		}
		centers[c] = make([]float64, m)
		copy(centers[c], X.RawRowView(selected))
	}
	return centers
}

// findNearestCluster は最近傍クラスタを検索
func findNearestCluster(sample []float64, centers [][]float64) int {
	minDist := math.Inf(1)
	nearest := 0
	for c, center := range centers {
		if d := floats.Distance(sample, center, 2); d < minDist {
			minDist = d
			nearest = c
		}
	}
	return nearest
}

// roundToObserved は各重心の座標を、同じ特徴量の観測値のうち最も近いものに置き換える
func roundToObserved(centroids, X *mat.Dense) {
	n, m := X.Dims()
	k, _ := centroids.Dims()
	col := make([]float64, n)
	for j := 0; j < m; j++ {
		mat.Col(col, j, X)
		sort.Float64s(col)
		for c := 0; c < k; c++ {
			centroids.Set(c, j, nearestSorted(col, centroids.At(c, j)))
		}
	}
}

func nearestSorted(sorted []float64, v float64) float64 {
	i := sort.SearchFloat64s(sorted, v)
	switch {
	case i == 0:
		return sorted[0]
	case i == len(sorted):
		return sorted[len(sorted)-1]
	case v-sorted[i-1] <= sorted[i]-v:
		return sorted[i-1]
	default:
		return sorted[i]
	}
}
