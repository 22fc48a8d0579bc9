package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate は一意性制約違反を表す。
// 呼び出し側はerrors.Isで判別し、その他の書き込み失敗と区別して扱う。
var ErrDuplicate = errors.New("duplicate key violates unique constraint")

// uniqueViolationCode はPostgreSQLのunique_violationエラーコード。
const uniqueViolationCode = "23505"

// isUniqueViolation はエラーがPostgreSQLの一意性制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}
