package annotation

import (
	"slices"

	"github.com/sarang1991/findbugs/internal/symbol"
)

// CatalogEntry names methods whose return value must always be checked.
// Name "*" matches every method of Owner except those listed in Except.
// An empty Signature matches any signature.
type CatalogEntry struct {
	Owner     string   `yaml:"owner"`
	Name      string   `yaml:"name"`
	Signature string   `yaml:"signature,omitempty"`
	Except    []string `yaml:"except,omitempty"`
}

// Matches reports whether the entry covers a method of owner.
func (e CatalogEntry) Matches(owner, name, signature string) bool {
	if e.Owner != owner {
		return false
	}
	if e.Signature != "" && e.Signature != signature {
		return false
	}
	if e.Name == "*" {
		return !slices.Contains(e.Except, name) && name != "<init>" && name != "<clinit>"
	}
	return e.Name == name
}

// DefaultCatalog lists well-known library methods whose results are the
// whole point of calling them.
var DefaultCatalog = []CatalogEntry{
	{Owner: "java.lang.String", Name: "*", Except: []string{"getChars"}},
	{Owner: "java.math.BigInteger", Name: "*", Except: []string{"intValue", "longValue", "hashCode"}},
	{Owner: "java.math.BigDecimal", Name: "*", Except: []string{"intValue", "longValue", "hashCode"}},
	{Owner: "java.lang.Thread", Name: "<init>"},
	{Owner: "java.net.InetAddress", Name: "getByName"},
	{Owner: "java.security.MessageDigest", Name: "digest"},
	{Owner: "java.util.concurrent.locks.Lock", Name: "tryLock"},
	{Owner: "java.util.concurrent.locks.Condition", Name: "await", Signature: "(JLjava/util/concurrent/TimeUnit;)Z"},
	{Owner: "java.util.concurrent.locks.Condition", Name: "awaitNanos"},
	{Owner: "java.util.concurrent.locks.Condition", Name: "awaitUntil"},
	{Owner: "java.util.concurrent.BlockingQueue", Name: "offer"},
	{Owner: "java.util.concurrent.BlockingQueue", Name: "poll"},
	{Owner: "java.util.concurrent.CountDownLatch", Name: "await", Signature: "(JLjava/util/concurrent/TimeUnit;)Z"},
	{Owner: "java.util.concurrent.Semaphore", Name: "tryAcquire"},
	{Owner: "java.util.concurrent.ExecutorService", Name: "submit"},
	{Owner: "java.io.File", Name: "createNewFile"},
	{Owner: "java.io.File", Name: "delete"},
	{Owner: "java.io.File", Name: "mkdir"},
	{Owner: "java.io.File", Name: "mkdirs"},
	{Owner: "java.io.File", Name: "renameTo"},
	{Owner: "java.io.File", Name: "setLastModified"},
	{Owner: "java.io.File", Name: "setReadOnly"},
	{Owner: "java.io.InputStream", Name: "skip"},
	{Owner: "java.io.InputStream", Name: "read", Signature: "([B)I"},
	{Owner: "java.io.InputStream", Name: "read", Signature: "([BII)I"},
}

func lookupCatalog(catalog []CatalogEntry, ref *symbol.MethodRef, owner string) bool {
	for _, e := range catalog {
		if e.Matches(owner, ref.Name, ref.Signature) {
			return true
		}
	}
	return false
}
