package cache

import (
	"context"
	"encoding/json"
)

// Cache guarda respostas serializadas (JSON). Falhas de cache nunca devem quebrar a requisição:
// Get devolve miss e Set/Delete só registram o erro no chamador.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// GetJSON decodifica um hit em dst. Retorna false em miss ou JSON inválido.
func GetJSON(ctx context.Context, c Cache, key string, dst interface{}) bool {
	if c == nil {
		return false
	}
	b, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

func SetJSON(ctx context.Context, c Cache, key string, v interface{}) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, b)
}
