// Package cipher implements the classical Caesar, Vigenère and Vernam
// ciphers, a frequency attack on the Caesar cipher, and a registry of named
// operations that can be chained into pipelines.
//
// # Ciphers
//
// Each family implements Cipher. Encrypt generates or validates the key and
// returns it so the text can be decrypted later:
//
//	rng := cipher.NewSeededSource(42)
//	out, key, _ := cipher.Encrypt(cipher.Vigenere{}, "Attack at dawn", "lemon", rng)
//	plain, _ := cipher.Decrypt(cipher.Vigenere{}, out, key)
//
// The typed helpers ShiftEncrypt, VigenereEncrypt and VernamEncrypt wrap the
// same flow.
//
// # Frequency analysis
//
// ShiftAutoDecrypt scores all 26 shifts against EnglishLetterFrequencies
// and applies the one with the smallest squared deviation. It needs a few
// hundred letters to be reliable.
//
// # Operations and pipelines
//
// Every transform is registered under a name:
//
//	op, _ := cipher.GetOperation("caesar_encrypt")
//	params := map[string]interface{}{"key": 3}
//	result, _ := op.Execute(ctx, []byte("Attack at dawn"), params)
//	// result: []byte("Dwwdfn dw gdzq")
//
// Encrypt operations store the key they used under params["key"], which lets
// Pipeline.Reverse build the matching decryption chain.
//
// Available operations:
//   - caesar_encrypt/decrypt, caesar_auto_decrypt
//   - vigenere_encrypt/decrypt
//   - vernam_encrypt/decrypt
//   - binary_encode/decode
//
// # Thread Safety
//
// The registry is safe for concurrent use and the ciphers are stateless.
// Sources returned by NewSeededSource are not; wrap them with
// NewLockedSource before sharing.
package cipher
