package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

// Save は値を gob 形式でファイルに保存する
//
// パラメータ:
//   - v: 保存する値（説明結果など、gob でエンコード可能な構造体）
//   - filename: 保存先のファイルパス
//
// 使用例:
//
//	err := model.Save(exp, "explanation.gob")
func Save(v interface{}, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", filename)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close file")
		}
	}()
	return SaveToWriter(v, file)
}

// Load はファイルから gob 形式の値を読み込む
//
// パラメータ:
//   - v: 読み込み先（ポインタ）
//   - filename: 読み込み元のファイルパス
func Load(v interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", filename)
	}
	defer file.Close()
	return LoadFromReader(v, file)
}

// SaveToWriter は値を io.Writer に gob 形式で書き込む
func SaveToWriter(v interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode")
	}
	return nil
}

// LoadFromReader は io.Reader から gob 形式の値を読み込む
func LoadFromReader(v interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrap(err, "failed to decode")
	}
	return nil
}
