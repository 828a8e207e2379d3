package blob

import "context"

// ImageStore guarda binarios (fotos de tomas) y devuelve la URL pública.
// La validación de tipo/tamaño NO vive acá; es responsabilidad del
// servicio de uploads. El adapter solo persiste.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
